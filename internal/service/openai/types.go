package openai

// 运行状态，远程端还有其他取值，轮询只对这两个做分支
const (
	StatusRequiresAction = "requires_action"
	StatusCompleted      = "completed"
)

// FileInfo 已上传文件的句柄
// Filename 保留原始文件名，用于指令模板占位符替换
type FileInfo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Tool 助手工具声明
type Tool struct {
	Type     string        `json:"type"`
	Function *ToolFunction `json:"function,omitempty"`
}

// ToolFunction function 工具的 JSON Schema 定义
type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolResources 助手的资源绑定
type ToolResources struct {
	CodeInterpreter *CodeInterpreterResources `json:"code_interpreter,omitempty"`
	FileSearch      *FileSearchResources      `json:"file_search,omitempty"`
}

// CodeInterpreterResources code_interpreter 绑定的文件
type CodeInterpreterResources struct {
	FileIDs []string `json:"file_ids"`
}

// FileSearchResources file_search 绑定的 vector store
type FileSearchResources struct {
	VectorStoreIDs []string `json:"vector_store_ids"`
}

// CreateAssistantRequest 创建助手请求
type CreateAssistantRequest struct {
	Instructions  string         `json:"instructions"`
	Name          string         `json:"name"`
	Tools         []Tool         `json:"tools"`
	ToolResources *ToolResources `json:"tool_resources,omitempty"`
	Model         string         `json:"model"`
}

// ThreadMessage 远程 thread 中的一条消息
type ThreadMessage struct {
	ID        string           `json:"id"`
	CreatedAt int64            `json:"created_at"`
	Role      string           `json:"role"`
	Content   []MessageContent `json:"content"`
}

// MessageContent 消息内容片段，只消费 text 类型
type MessageContent struct {
	Type string       `json:"type"`
	Text *TextContent `json:"text,omitempty"`
}

// TextContent 文本内容
type TextContent struct {
	Value string `json:"value"`
}

// SimplifiedMessage 返回给客户端的消息格式
type SimplifiedMessage struct {
	CreatedAt int64  `json:"created_at"`
	Role      string `json:"role"`
	Text      string `json:"text"`
}

// Run 一次远程运行的状态快照
type Run struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
}

// RequiredAction 运行暂停等待本地工具结果
type RequiredAction struct {
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs 待处理的工具调用列表
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall 单个工具调用
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall 工具调用的函数名与参数
// Arguments 是远程端给出的 JSON 字符串，原样保留，由调度方解析
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput 工具执行结果
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}
