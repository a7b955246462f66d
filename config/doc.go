// Package config 提供 rsimage 的配置管理功能。
//
// 配置按 默认值 → 配置文件（YAML 或 JSON）→ 环境变量 的顺序叠加，
// 环境变量键由前缀（默认 RSIMAGE）与字段 env 标签拼接而成，
// 另外兼容原有的 BOT_TOKEN、IMAGE_API_TOKEN、HTTPS_PROXY、SOCKS_PROXY。
//
// Watcher 轮询配置文件修改时间，新内容通过 Validate 后才分发给订阅者。
package config
