package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/remo/internal/repository/sqlite"
)

// TxBeginner starts transactions. *sqlx.DB satisfies it.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ReadTx runs each request inside one database transaction.
//
//	req → ReadTx ─ BEGIN ─→ handler → repositories (join the tx via ctx)
//	                          ↓
//	                       ROLLBACK (nothing to keep: the routes only read)
//
// Every query of the request then reads the same snapshot, so a list page
// and its total_count cannot disagree. A panic still rolls back before it
// propagates to the Recoverer.
func ReadTx(db TxBeginner, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tx, err := db.BeginTxx(r.Context(), nil)
			if err != nil {
				logger.Error("failed to begin request transaction",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error","message":"An internal error occurred"}`))
				return
			}

			defer func() {
				if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
					logger.Warn("failed to end request transaction", slog.String("error", err.Error()))
				}
			}()

			next.ServeHTTP(w, r.WithContext(sqlite.ContextWithTx(r.Context(), tx)))
		})
	}
}
