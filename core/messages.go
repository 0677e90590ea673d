package core

import "encoding/json"

// CommandTag 标识信封对应的操作
type CommandTag string

const (
	CommandDetectPose    CommandTag = "detect_pose"
	CommandLogin         CommandTag = "login"
	CommandRegister      CommandTag = "register"
	CommandUpdateResult  CommandTag = "update_result"
	CommandGetAllResults CommandTag = "get_all_results"
	CommandGetLevels     CommandTag = "get_levels"
)

// MoveGuide 是姿态引导提示，由应用层解释
type MoveGuide int

const (
	MoveGuideOK MoveGuide = iota
	MoveGuideMoveLeft
	MoveGuideMoveRight
	MoveGuideMoveCameraDown
	MoveGuideMoveAway
)

func (m MoveGuide) String() string {
	switch m {
	case MoveGuideOK:
		return "OK"
	case MoveGuideMoveLeft:
		return "MOVE_LEFT"
	case MoveGuideMoveRight:
		return "MOVE_RIGHT"
	case MoveGuideMoveCameraDown:
		return "MOVE_CAMERA_DOWN"
	case MoveGuideMoveAway:
		return "MOVE_AWAY"
	default:
		return "UNKNOWN"
	}
}

// NetworkStatus 向应用层报告连接健康状况
type NetworkStatus int

const (
	NetworkOK NetworkStatus = iota
	NetworkReconnecting
	NetworkWeak
	NetworkError
	NetworkClose
)

func (s NetworkStatus) String() string {
	switch s {
	case NetworkOK:
		return "OK"
	case NetworkReconnecting:
		return "RECONNECTING"
	case NetworkWeak:
		return "WEAK"
	case NetworkError:
		return "ERROR"
	case NetworkClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Request 是出站命令的封闭联合类型
type Request interface {
	Command() CommandTag
	isRequest()
}

type DetectPoseRequest struct {
	Frame       string `json:"frame"`
	UpdateStart bool   `json:"update_start"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateResultRequest struct {
	UserID  string  `json:"user_id"`
	LevelID string  `json:"level_id"`
	Score   float64 `json:"score"`
	Percent float64 `json:"percent"`
}

type GetAllResultsRequest struct {
	UserID string `json:"user_id"`
}

type GetLevelsRequest struct{}

func (DetectPoseRequest) Command() CommandTag    { return CommandDetectPose }
func (LoginRequest) Command() CommandTag         { return CommandLogin }
func (RegisterRequest) Command() CommandTag      { return CommandRegister }
func (UpdateResultRequest) Command() CommandTag  { return CommandUpdateResult }
func (GetAllResultsRequest) Command() CommandTag { return CommandGetAllResults }
func (GetLevelsRequest) Command() CommandTag     { return CommandGetLevels }

func (DetectPoseRequest) isRequest()    {}
func (LoginRequest) isRequest()         {}
func (RegisterRequest) isRequest()      {}
func (UpdateResultRequest) isRequest()  {}
func (GetAllResultsRequest) isRequest() {}
func (GetLevelsRequest) isRequest()     {}

// MarshalJSON 方法把 command 字段放在信封最前面

func (r DetectPoseRequest) MarshalJSON() ([]byte, error) {
	type wire DetectPoseRequest
	return json.Marshal(struct {
		Command CommandTag `json:"command"`
		wire
	}{r.Command(), wire(r)})
}

func (r LoginRequest) MarshalJSON() ([]byte, error) {
	type wire LoginRequest
	return json.Marshal(struct {
		Command CommandTag `json:"command"`
		wire
	}{r.Command(), wire(r)})
}

func (r RegisterRequest) MarshalJSON() ([]byte, error) {
	type wire RegisterRequest
	return json.Marshal(struct {
		Command CommandTag `json:"command"`
		wire
	}{r.Command(), wire(r)})
}

func (r UpdateResultRequest) MarshalJSON() ([]byte, error) {
	type wire UpdateResultRequest
	return json.Marshal(struct {
		Command CommandTag `json:"command"`
		wire
	}{r.Command(), wire(r)})
}

func (r GetAllResultsRequest) MarshalJSON() ([]byte, error) {
	type wire GetAllResultsRequest
	return json.Marshal(struct {
		Command CommandTag `json:"command"`
		wire
	}{r.Command(), wire(r)})
}

func (r GetLevelsRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Command CommandTag `json:"command"`
	}{r.Command()})
}

type UserAccount struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type LevelResult struct {
	LevelID string  `json:"level_id"`
	Score   float64 `json:"score"`
	Percent float64 `json:"percent"`
}

type LevelData struct {
	Name string `json:"name"`
}

// Response 是入站应答的封闭联合类型。Raw 保存未经改动的原始内容，
// 当内容不符合类型定义时，其余字段为零值。
type Response interface {
	Command() CommandTag
	isResponse()
}

// DetectPoseResponse 没有 response 包装层，字段直接位于信封顶层
type DetectPoseResponse struct {
	MoveGuide MoveGuide       `json:"mguide"`
	Keypoints json.RawMessage `json:"keypoints"`
	Raw       json.RawMessage `json:"-"`
}

type LoginResponse struct {
	Success int             `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    *UserAccount    `json:"data,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

type RegisterResponse struct {
	Success int             `json:"success"`
	Message string          `json:"message,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

type GetAllResultsResponse struct {
	Success int             `json:"success"`
	Data    []LevelResult   `json:"data"`
	Raw     json.RawMessage `json:"-"`
}

type GetLevelsResponse struct {
	Success int             `json:"success"`
	Data    []LevelData     `json:"data"`
	Raw     json.RawMessage `json:"-"`
}

func (DetectPoseResponse) Command() CommandTag    { return CommandDetectPose }
func (LoginResponse) Command() CommandTag         { return CommandLogin }
func (RegisterResponse) Command() CommandTag      { return CommandRegister }
func (GetAllResultsResponse) Command() CommandTag { return CommandGetAllResults }
func (GetLevelsResponse) Command() CommandTag     { return CommandGetLevels }

func (DetectPoseResponse) isResponse()    {}
func (LoginResponse) isResponse()         {}
func (RegisterResponse) isResponse()      {}
func (GetAllResultsResponse) isResponse() {}
func (GetLevelsResponse) isResponse()     {}

// Succeeded 对应服务端的 success == 1
func (r LoginResponse) Succeeded() bool         { return r.Success == 1 }
func (r RegisterResponse) Succeeded() bool      { return r.Success == 1 }
func (r GetAllResultsResponse) Succeeded() bool { return r.Success == 1 }
func (r GetLevelsResponse) Succeeded() bool     { return r.Success == 1 }
