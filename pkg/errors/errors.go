package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized        = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidDeviceID     = Definition{Code: "INVALID_DEVICE_ID", Message: "Invalid device ID format"}
	RefreshTokenInvalid = Definition{Code: "REFRESH_TOKEN_INVALID", Message: "Refresh token invalid"}
	RequestRateLimited  = Definition{Code: "REQUEST_RATE_LIMITED", Message: "Request rate limited"}
)

// 问卷模块错误。
var (
	SurveyNotFound       = Definition{Code: "SURVEY_NOT_FOUND", Message: "Survey not found"}
	SurveyNotActive      = Definition{Code: "SURVEY_NOT_ACTIVE", Message: "Survey not active"}
	SurveyNotDue         = Definition{Code: "SURVEY_NOT_DUE", Message: "Survey not available yet"}
	ProgressNotStarted   = Definition{Code: "PROGRESS_NOT_STARTED", Message: "Survey progress not started"}
	AnswersInvalid       = Definition{Code: "ANSWERS_INVALID", Message: "Survey answers invalid"}
	BehaviorTagInvalid   = Definition{Code: "BEHAVIOR_TAG_INVALID", Message: "Behavior tag invalid"}
	CategoryInvalid      = Definition{Code: "CATEGORY_INVALID", Message: "Survey category invalid"}
	ScheduleTypeInvalid  = Definition{Code: "SCHEDULE_TYPE_INVALID", Message: "Schedule type invalid"}
)

// 离线缓存模块错误。
var (
	CachedSurveyNotFound = Definition{Code: "CACHED_SURVEY_NOT_FOUND", Message: "Cached survey not found"}
	CacheAlreadySynced   = Definition{Code: "CACHE_ALREADY_SYNCED", Message: "Cached survey already synced"}
	CacheNotCompleted    = Definition{Code: "CACHE_NOT_COMPLETED", Message: "Cached survey not completed"}
	SyncInProgress       = Definition{Code: "SYNC_IN_PROGRESS", Message: "Sync already in progress"}
)

// 积分账本错误。
var (
	PointsInsufficient  = Definition{Code: "POINTS_INSUFFICIENT", Message: "Points insufficient"}
	PointsReasonInvalid = Definition{Code: "POINTS_REASON_INVALID", Message: "Points reason invalid"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:         Unauthorized,
	InvalidDeviceID.Code:      InvalidDeviceID,
	RefreshTokenInvalid.Code:  RefreshTokenInvalid,
	RequestRateLimited.Code:   RequestRateLimited,
	SurveyNotFound.Code:       SurveyNotFound,
	SurveyNotActive.Code:      SurveyNotActive,
	SurveyNotDue.Code:         SurveyNotDue,
	ProgressNotStarted.Code:   ProgressNotStarted,
	AnswersInvalid.Code:       AnswersInvalid,
	BehaviorTagInvalid.Code:   BehaviorTagInvalid,
	CategoryInvalid.Code:      CategoryInvalid,
	ScheduleTypeInvalid.Code:  ScheduleTypeInvalid,
	CachedSurveyNotFound.Code: CachedSurveyNotFound,
	CacheAlreadySynced.Code:   CacheAlreadySynced,
	CacheNotCompleted.Code:    CacheNotCompleted,
	SyncInProgress.Code:       SyncInProgress,
	PointsInsufficient.Code:   PointsInsufficient,
	PointsReasonInvalid.Code:  PointsReasonInvalid,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
