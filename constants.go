package gallery

import "time"

const (
	DevelopmentEnvironment = "development"
	ProductionEnvironment  = "production"
)

// Upload limits applied to every multipart request.
const (
	MaxFileSize        = 10 * 1024 * 1024 // 10MB
	MaxFilesPerRequest = 50
)

const DefaultTokenTTL = 24 * time.Hour

// DateLayouts are the accepted input formats of a gallery date.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}
