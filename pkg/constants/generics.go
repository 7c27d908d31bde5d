package constants

import "time"

// RFC3339MicroDateTimeFormat is the RFC 3339 layout used for every serialized timestamp.
// It keeps microseconds, the resolution write timestamps are stored at.
const RFC3339MicroDateTimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// DefaultWaitlistSource tags submissions that arrive without a campaign source.
const DefaultWaitlistSource = "cv99x-waitlist"

const (
	// DefaultRequestTimeout bounds a whole HTTP request through the router.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultStoreTimeout bounds the single upsert call made per submission.
	DefaultStoreTimeout = 10 * time.Second
)

// Backing store drivers selectable with STORE_DRIVER.
const (
	StoreDriverSupabase = "supabase"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)
