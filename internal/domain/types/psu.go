package types

import "strings"

// PsuIdData identifica al PSU (Payment Service User). Puede venir parcialmente
// poblada: un TPP puede mandar solo PsuID en la identificación inicial y
// completar los campos corporate en updates posteriores.
type PsuIdData struct {
	PsuID              string
	PsuIDType          string
	PsuCorporateID     string
	PsuCorporateIDType string
}

// IsEmpty indica si no hay ningún dato de identificación.
func (p PsuIdData) IsEmpty() bool {
	return strings.TrimSpace(p.PsuID) == "" && strings.TrimSpace(p.PsuCorporateID) == ""
}

// Matches compara la identidad contra otra ya vinculada al recurso.
// Solo compara los campos que ambas tienen poblados: una identidad parcial
// que refina a la almacenada no es un mismatch.
func (p PsuIdData) Matches(other PsuIdData) bool {
	if p.PsuID != "" && other.PsuID != "" && p.PsuID != other.PsuID {
		return false
	}
	if p.PsuCorporateID != "" && other.PsuCorporateID != "" && p.PsuCorporateID != other.PsuCorporateID {
		return false
	}
	return true
}

// Merge combina la identidad almacenada con un refinamiento del request.
// Los campos no vacíos del request pisan a los almacenados.
func (p PsuIdData) Merge(update PsuIdData) PsuIdData {
	out := p
	if update.PsuID != "" {
		out.PsuID = update.PsuID
	}
	if update.PsuIDType != "" {
		out.PsuIDType = update.PsuIDType
	}
	if update.PsuCorporateID != "" {
		out.PsuCorporateID = update.PsuCorporateID
	}
	if update.PsuCorporateIDType != "" {
		out.PsuCorporateIDType = update.PsuCorporateIDType
	}
	return out
}
