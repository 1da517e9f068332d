package domain

import "github.com/m-mizutani/goerr/v2"

var (
	ErrConnection     = goerr.New("airflow webserver is unreachable")
	ErrAuthentication = goerr.New("authentication failed")
	ErrNotFound       = goerr.New("resource not found")
	ErrSchema         = goerr.New("malformed task instance record")
	ErrAPIRequest     = goerr.New("API request failed")
	ErrConfiguration  = goerr.New("configuration error")
	ErrExport         = goerr.New("export failed")
)
