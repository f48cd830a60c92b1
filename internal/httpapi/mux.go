package httpapi

import (
	"database/sql"
	"net/http"
)

func NewMux(db *sql.DB, ingest IngestStatus) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, ingest)
	return mux
}
