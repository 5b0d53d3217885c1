package constants

// viper keys
const (
	ViperBindAddr        = "bind_addr"
	ViperDatabaseDSN     = "database_dsn"
	ViperProviderBaseURL = "provider_base_url"
	ViperSecretKey       = "secret_key"
)

const (
	CookieKeySecretToken = "secret_token"
	CtxKeyUserID         = "user_id"
)
