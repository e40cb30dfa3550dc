package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fazaimron27/tooldock/domain/category"
	"github.com/fazaimron27/tooldock/domain/menu"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/domain/permission"
	"github.com/fazaimron27/tooldock/domain/role"
	"github.com/fazaimron27/tooldock/domain/setting"
	"github.com/fazaimron27/tooldock/domain/widget"
)

// Declarations holds the registry contributions a module declares in its
// manifest alongside the descriptor fields.
type Declarations struct {
	Settings    []setting.Setting       `json:"settings,omitempty"`
	Permissions []permission.Permission `json:"permissions,omitempty"`
	Menu        []menu.Item             `json:"menu,omitempty"`
	Categories  []category.Category     `json:"categories,omitempty"`
	Roles       []role.Role             `json:"roles,omitempty"`
	Middleware  []string                `json:"middleware,omitempty"`
	Widgets     []widget.Widget         `json:"widgets,omitempty"`
}

// LoadDeclarations reads a module's registry declarations from its manifest.
// The owning module of every item is forced to the descriptor's name, so a
// manifest cannot declare on behalf of another module.
func (l *Loader) LoadDeclarations(desc module.Descriptor) (Declarations, error) {
	path := filepath.Join(desc.Path, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Declarations{}, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var decl Declarations
	if err := json.Unmarshal(data, &decl); err != nil {
		return Declarations{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	for i := range decl.Settings {
		decl.Settings[i].Module = desc.Name
	}
	for i := range decl.Permissions {
		decl.Permissions[i].Module = desc.Name
	}
	for i := range decl.Menu {
		decl.Menu[i].Module = desc.Name
	}
	for i := range decl.Categories {
		decl.Categories[i].Module = desc.Name
	}
	for i := range decl.Roles {
		decl.Roles[i].Module = desc.Name
	}
	for i := range decl.Widgets {
		decl.Widgets[i].Module = desc.Name
	}
	return decl, nil
}
