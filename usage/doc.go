// Package usage 维护每个用户的生成额度。
//
// free 套餐默认上限 20 次，pro 套餐无上限。每次成功生成只记一次，
// 记账时机由调用方根据 plans.charge_on_delivery_failure 决定。
package usage
