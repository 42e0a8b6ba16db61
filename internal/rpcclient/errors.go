package rpcclient

import "github.com/alexdesousa/icon-sub001/internal/iconerr"

func errInvalidRequest(message string) error {
	return iconerr.InvalidRequest(message)
}

func errInvalidParams(message string) error {
	return iconerr.InvalidParams(message)
}

func errSystem(message string) error {
	return iconerr.System(message)
}
