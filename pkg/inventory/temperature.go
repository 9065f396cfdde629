package inventory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hemolink/platform/pkg/common/models"
)

// TempRequirement declares the acceptable storage band for one component type.
type TempRequirement struct {
	MinC         float64  `yaml:"min_c"`
	MaxC         float64  `yaml:"max_c"`
	StorageTypes []string `yaml:"storage_types"`
}

// TempMatrix maps component types to their storage requirements.
type TempMatrix map[models.ComponentType]TempRequirement

// DefaultTempMatrix returns the compiled-in requirements. A YAML file can
// override individual entries via LoadTempMatrix.
func DefaultTempMatrix() TempMatrix {
	return TempMatrix{
		models.ComponentWholeBlood:      {MinC: 2, MaxC: 6, StorageTypes: []string{"refrigerator", "blood_fridge"}},
		models.ComponentPRC:             {MinC: 2, MaxC: 6, StorageTypes: []string{"refrigerator", "blood_fridge"}},
		models.ComponentPlasma:          {MinC: -30, MaxC: -18, StorageTypes: []string{"freezer", "plasma_freezer"}},
		models.ComponentFFP:             {MinC: -30, MaxC: -18, StorageTypes: []string{"freezer", "plasma_freezer"}},
		models.ComponentCryoprecipitate: {MinC: -30, MaxC: -18, StorageTypes: []string{"freezer", "plasma_freezer"}},
		models.ComponentPlatelets:       {MinC: 20, MaxC: 24, StorageTypes: []string{"platelet", "room_temp"}},
	}
}

// LoadTempMatrix merges entries from an optional YAML file over the defaults.
// An empty path means defaults only.
func LoadTempMatrix(path string) (TempMatrix, error) {
	matrix := DefaultTempMatrix()
	if path == "" {
		return matrix, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read temperature requirements: %w", err)
	}
	var overrides map[models.ComponentType]TempRequirement
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse temperature requirements: %w", err)
	}
	for ct, req := range overrides {
		matrix[ct] = req
	}
	return matrix, nil
}

// Compatible reports whether dest can hold the given component type. A type
// with no declared requirement is accepted. Matching is either on the storage
// type name or on numeric band overlap when dest declares limits.
func (m TempMatrix) Compatible(ct models.ComponentType, dest models.StorageLocation) bool {
	req, ok := m[ct]
	if !ok {
		return true
	}
	destType := strings.ToLower(string(dest.StorageType))
	for _, st := range req.StorageTypes {
		if destType != "" && (strings.Contains(destType, st) || strings.Contains(st, destType)) {
			return true
		}
	}
	if dest.TempMin != nil && dest.TempMax != nil {
		if *dest.TempMin <= req.MaxC && *dest.TempMax >= req.MinC {
			return true
		}
	}
	return false
}

// Band renders the required range for display, e.g. "2°C to 6°C".
func (m TempMatrix) Band(ct models.ComponentType) string {
	req, ok := m[ct]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%g°C to %g°C", req.MinC, req.MaxC)
}
