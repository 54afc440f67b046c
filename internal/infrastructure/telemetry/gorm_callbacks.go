package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type startTimeKey struct{ plugin string }

// registerTimedCallbacks installs a before/after pair around every GORM processor.
// The after hook receives the SQL verb; row and raw statements are classified from their text.
func registerTimedCallbacks(db *gorm.DB, prefix string, after func(tx *gorm.DB, op string, elapsed time.Duration)) error {
	key := startTimeKey{plugin: prefix}
	before := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
	wrap := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			var elapsed time.Duration
			if tx.Statement.Context != nil {
				if start, ok := tx.Statement.Context.Value(key).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			verb := op
			if verb == "" {
				verb = detectOperationType(tx.Statement.SQL.String())
			}
			after(tx, verb, elapsed)
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(prefix+":before_create", before),
		cb.Query().Before("gorm:query").Register(prefix+":before_query", before),
		cb.Update().Before("gorm:update").Register(prefix+":before_update", before),
		cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", before),
		cb.Row().Before("gorm:row").Register(prefix+":before_row", before),
		cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", before),
		cb.Create().After("gorm:create").Register(prefix+":after_create", wrap("INSERT")),
		cb.Query().After("gorm:query").Register(prefix+":after_query", wrap("SELECT")),
		cb.Update().After("gorm:update").Register(prefix+":after_update", wrap("UPDATE")),
		cb.Delete().After("gorm:delete").Register(prefix+":after_delete", wrap("DELETE")),
		cb.Row().After("gorm:row").Register(prefix+":after_row", wrap("")),
		cb.Raw().After("gorm:raw").Register(prefix+":after_raw", wrap("")),
	)
}

func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
