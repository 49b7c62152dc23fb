package dto

// ========== Auth 相关 DTO ==========

// DeviceRegisterRequest 设备注册请求，无账号体系，以设备为用户身份
type DeviceRegisterRequest struct {
	DeviceID   string `json:"device_id,omitempty"` // 为空时由服务端生成
	Platform   string `json:"platform"`
	AppVersion string `json:"app_version"`
}

// DeviceRegisterResponse 设备注册响应
type DeviceRegisterResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshTokenRequest 刷新 token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshTokenResponse 刷新 token 响应
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}
