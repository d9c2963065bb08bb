package repository

import "errors"

var (
	// ErrNotFound: el registro no existe en el record store.
	ErrNotFound = errors.New("not found")
	// ErrConflict: write rechazado por versión obsoleta (optimistic locking).
	// El caller puede recargar y reintentar; el engine no reintenta solo.
	ErrConflict = errors.New("conflict")
	// ErrTechnical: fallo de infraestructura en el store o en el sink.
	ErrTechnical = errors.New("technical error")
)
