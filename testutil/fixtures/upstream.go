// Package fixtures 收录上游图像服务的原始响应样例。
//
// 每个样例对应一种已观测到的响应形态，供归一化、轮询与端到端测试复用。
package fixtures

// ===== 📦 同步响应形态 =====

const (
	// ImagesArray 顶层 images 数组，url 为嵌套对象
	ImagesArray = `{"images":[{"url":{"href":"https://x/images.png"}},{"base64":"aGVsbG8="}]}`

	// DataArrayStrings 顶层 data 数组，元素为裸字符串
	DataArrayStrings = `{"data":["https://x/img.png"]}`

	// DataArrayObjects 顶层 data 数组，元素为 OpenAI 风格对象
	DataArrayObjects = `{"created":1,"data":[{"b64_json":"aGVsbG8="},{"url":"https://x/second.png"}]}`

	// OutputArray 顶层 output 数组，混合字符串与对象
	OutputArray = `{"output":["https://x/out.png",{"url":"https://x/out2.png"}]}`

	// ResultImages result.images 数组
	ResultImages = `{"result":{"images":[{"url":"https://x/result.png"}]}}`

	// ResultImage 单个 result.image
	ResultImage = `{"result":{"image":{"image_url":"https://x/single-result.png"}}}`

	// NestedDataImages 嵌套 data 对象的 images 数组
	NestedDataImages = `{"data":{"images":[{"url":"https://x/nested.png"}]}}`

	// NestedDataImage 嵌套 data 对象的单个 image 字段
	NestedDataImage = `{"data":{"image":"https://x/nested-single.png"}}`

	// TopLevelImage 顶层单个 image 字段
	TopLevelImage = `{"image":{"url":"https://x/top.png"}}`

	// FlatFields 平铺的单图字段
	FlatFields = `{"image_url":"https://x/flat.png","b64_json":"aGVsbG8="}`

	// DeepResultURL 供应商特定的深层路径，带首尾空白
	DeepResultURL = `{"code":200,"data":{"info":{"resultImageUrl":"  https://x/r.png  "}}}`

	// ImagesAndFlat 同时匹配 images 数组与平铺字段，images 优先
	ImagesAndFlat = `{"images":[{"url":"https://x/from-images.png"}],"url":"https://x/from-flat.png"}`

	// NoImage 格式正确但不含任何图像
	NoImage = `{"status":"ok","message":"accepted"}`
)

// ===== 🔄 任务型响应形态 =====

const (
	// TaskSubmitted 任务型供应商返回任务句柄
	TaskSubmitted = `{"code":200,"msg":"success","data":{"taskId":"abc"}}`

	// TaskPending 任务仍在处理
	TaskPending = `{"code":200,"data":{"successFlag":0}}`

	// TaskReady 任务完成并带结果地址
	TaskReady = `{"code":200,"data":{"info":{"resultImageUrl":"https://x/r.png"}}}`

	// TaskFailed 终态失败
	TaskFailed = `{"code":500,"msg":"generation failed"}`

	// TaskProcessingCode 非 200 的"处理中"状态码
	TaskProcessingCode = `{"code":0,"msg":"processing"}`
)
