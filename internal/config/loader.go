// Package config загружает декларации пайплайнов из JSON-файлов.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
)

// Ошибки загрузки конфигураций.
var (
	// ErrNoConfigs — в каталоге нет ни одного *.json файла.
	ErrNoConfigs = errors.New("no pipeline configs found")

	// ErrDuplicateName — два файла объявляют пайплайн с одним именем.
	ErrDuplicateName = errors.New("duplicate pipeline name")
)

// Load читает и валидирует декларацию пайплайна из файла.
//
// Пустое поле name заполняется именем файла без расширения.
// Возвращаемая декларация уже прошла engine.Validate.
func Load(path string) (*domain.PipelineSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if spec.Name == "" {
		base := filepath.Base(path)
		spec.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := engine.Validate(spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse декодирует декларацию пайплайна из JSON.
//
// Неизвестные поля — ошибка: опечатка в имени поля конфигурации
// должна ловиться при загрузке, а не молча игнорироваться.
func Parse(data []byte) (*domain.PipelineSpec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var spec domain.PipelineSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	return &spec, nil
}

// LoadDir читает все *.json файлы каталога в алфавитном порядке.
//
// Любой невалидный файл — ошибка всей загрузки: частично
// поднявшийся набор пайплайнов хуже, чем явный отказ на старте.
func LoadDir(dir string) ([]*domain.PipelineSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoConfigs, dir)
	}
	sort.Strings(files)

	seen := make(map[string]string, len(files))
	specs := make([]*domain.PipelineSpec, 0, len(files))
	for _, path := range files {
		spec, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[spec.Name]; ok {
			return nil, fmt.Errorf("%w: %q in %s and %s",
				ErrDuplicateName, spec.Name, prev, path)
		}
		seen[spec.Name] = path
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadPath загружает пайплайны из файла или каталога.
func LoadPath(path string) ([]*domain.PipelineSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		return LoadDir(path)
	}

	spec, err := Load(path)
	if err != nil {
		return nil, err
	}
	return []*domain.PipelineSpec{spec}, nil
}
