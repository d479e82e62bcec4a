package services

import "errors"

var (
	ErrNotConnected     = errors.New("sync is not connected")
	ErrNotConfigured    = errors.New("no sync id configured")
	ErrInvalidMode      = errors.New("invalid sync mode")
	ErrInvalidServerURL = errors.New("invalid server url")
)
