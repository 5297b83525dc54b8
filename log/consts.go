package log

import "go.uber.org/zap"

var (
	SourceMongo   = zap.String("source", "mongodb")
	SourceStorage = zap.String("source", "storage")
	SourceHTTP    = zap.String("source", "http")
	SourceAuth    = zap.String("source", "auth")
)
