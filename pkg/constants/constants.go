package constants

type contextKey string

const (
	// TxKey carries the active pgx transaction through context.
	TxKey contextKey = "pgx_tx"
	// PoolKey carries the pgx connection pool through context.
	PoolKey contextKey = "pgx_pool"
)
