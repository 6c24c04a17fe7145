package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"recipe-extractor/internal/pkg/common"
)

// ErrUnsupportedFormat 不支援的參考表格式
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type wrapped[T any] struct {
	Items []T `json:"items" yaml:"items" toml:"items"`
}

// LoadPrices 載入價格表；檔案不存在時回傳空表
func LoadPrices(path string) (*PriceCatalog, error) {
	entries, err := loadEntries[PriceEntry](path)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		e := &entries[i]
		if q, u, ok := ParseQtyUnit(e.PurchaseUnit); ok {
			if e.PurchaseQty == 0 {
				e.PurchaseQty = q
			}
			e.PurchaseUnit = u
		}
	}
	c := NewPriceCatalog(entries)
	common.LogInfo("Price catalog loaded", zap.String("path", path), zap.Int("entries", c.Len()))
	return c, nil
}

// LoadNutrition 載入營養表；檔案不存在時回傳空表
func LoadNutrition(path string) (*NutritionCatalog, error) {
	entries, err := loadEntries[NutritionEntry](path)
	if err != nil {
		return nil, err
	}
	c := NewNutritionCatalog(entries)
	common.LogInfo("Nutrition catalog loaded", zap.String("path", path), zap.Int("entries", c.Len()))
	return c, nil
}

func loadEntries[T any](path string) ([]T, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			common.LogWarn("Catalog file not found, using empty catalog", zap.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	entries, err := decodeEntries[T](filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return entries, nil
}

// decodeEntries 依副檔名解碼，接受清單或 {"items": [...]} 兩種形式
func decodeEntries[T any](ext string, data []byte) ([]T, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var list []T
	var w wrapped[T]
	switch strings.ToLower(ext) {
	case ".json":
		if trimmed[0] == '[' {
			if err := sonic.Unmarshal(trimmed, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		if err := sonic.Unmarshal(trimmed, &w); err != nil {
			return nil, err
		}
		return w.Items, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(trimmed, &list); err == nil {
			return list, nil
		}
		if err := yaml.Unmarshal(trimmed, &w); err != nil {
			return nil, err
		}
		return w.Items, nil
	case ".toml":
		if err := toml.Unmarshal(trimmed, &w); err != nil {
			return nil, err
		}
		return w.Items, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
