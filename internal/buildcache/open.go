package buildcache

import (
	"context"
	"fmt"
	"strings"
)

// Open returns the store selected by the url scheme:
//
//	file://<dir> or a bare path   msgpack sidecar files
//	sqlite://<path>               gorm + sqlite
//	mysql://<dsn>                 gorm + mysql
//	redis://<addr>/<db>           redis
//	mongodb://...                 mongo
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "file://"):
		return NewFileStore(strings.TrimPrefix(url, "file://"))
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "mysql://"):
		return OpenMySQL(strings.TrimPrefix(url, "mysql://"))
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return OpenRedis(ctx, url)
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return OpenMongo(ctx, url)
	case url == "" || strings.Contains(url, "://"):
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	default:
		return NewFileStore(url)
	}
}
