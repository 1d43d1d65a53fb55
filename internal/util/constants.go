package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeImage = "image/"
)

const (
	AccessTokenCookie  = "token"
	RefreshTokenCookie = "refresh_token"
)

var AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
