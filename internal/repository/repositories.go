package repository

import (
	"github.com/deppfellow/nginx-log-sink/internal/server"
)

// Repositories is a container for all repository instances. AccessLogs is
// nil when no database is configured.
type Repositories struct {
	AccessLogs *AccessLogRepository
}

func NewRepositories(s *server.Server) *Repositories {
	repos := &Repositories{}
	if s.DB != nil {
		repos.AccessLogs = NewAccessLogRepository(s)
	}
	return repos
}
