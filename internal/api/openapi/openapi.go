// Пакет openapi — встроенный OpenAPI-контракт File Service.
// Контракт загружается и валидируется при старте, отдаётся на /api/openapi.json.
package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contract []byte

// Document — загруженный и проверенный контракт.
type Document struct {
	doc  *openapi3.T
	json []byte
}

// Load разбирает встроенный контракт и проверяет его корректность.
func Load(ctx context.Context) (*Document, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(contract)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI-контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI-контракта: %w", err)
	}

	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("сериализация OpenAPI-контракта: %w", err)
	}

	return &Document{doc: doc, json: data}, nil
}

// JSON возвращает контракт в JSON.
func (d *Document) JSON() []byte {
	return d.json
}

// Version — версия API из info.version.
func (d *Document) Version() string {
	return d.doc.Info.Version
}

// HasOperation сообщает, описана ли операция method+path в контракте.
func (d *Document) HasOperation(method, path string) bool {
	item := d.doc.Paths.Find(path)
	if item == nil {
		return false
	}
	return item.GetOperation(method) != nil
}
