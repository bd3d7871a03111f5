package dte

import (
	"bytes"
	"encoding/json"
)

// Field es un campo opcional del esquema con tres estados: ausente, null o valor.
// Los validadores del MH distinguen "campo no enviado" de "campo en null", por eso
// los campos condicionales usan Field junto con la etiqueta omitzero.
type Field[T any] struct {
	value T
	set   bool
	null  bool
}

// Value construye un campo presente con valor.
func Value[T any](v T) Field[T] { return Field[T]{value: v, set: true} }

// Null construye un campo presente con valor null.
func Null[T any]() Field[T] { return Field[T]{set: true, null: true} }

// IsZero reporta ausencia; encoding/json omite el campo con omitzero.
func (f Field[T]) IsZero() bool { return !f.set }

// IsNull reporta un campo presente en null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Get devuelve el valor y si el campo tiene valor (no ausente ni null).
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set && !f.null
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(data, &f.value)
}
