package clients

import (
	"net/http"
	"time"
)

type HTTP struct{ c *http.Client }

func NewHTTP() *HTTP { return NewHTTPWithTimeout(60 * time.Second) }

func NewHTTPWithTimeout(d time.Duration) *HTTP { return &HTTP{c: &http.Client{Timeout: d}} }
