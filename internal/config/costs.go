package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// costsDocument - переопределения стоимостей операций:
//
//	costs:
//	  squareRoot: 3
//	  randomString: 12
type costsDocument struct {
	Costs map[string]int64 `yaml:"costs"`
}

// LoadCosts читает файл переопределений стоимостей. Пустой путь - нет переопределений.
func LoadCosts(path string) (map[string]int64, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read costs file: %w", err)
	}

	var file costsDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse costs file %s: %w", path, err)
	}

	for kind, cost := range file.Costs {
		if cost <= 0 {
			return nil, fmt.Errorf("costs file %s: cost of %s must be positive", path, kind)
		}
	}
	return file.Costs, nil
}
