package engine

import (
	"fmt"

	"yardb/internal/yarerr"
)

func errAlreadyLocked(dbPath string) *yarerr.Error {
	return yarerr.New(yarerr.AlreadyLocked, fmt.Sprintf("database %s is already locked by another process", dbPath)).
		With("path", dbPath)
}
