package permission

// Subject is anything carrying a permission matrix. PermissionMatrix must return a copy the
// caller may keep.
type Subject interface {
	PermissionMatrix() Matrix
}

// Checker evaluates access against one matrix. It never panics; a nil Checker denies everything.
type Checker struct {
	matrix Matrix
}

// NewChecker copies m, so later changes to m do not leak into the checker.
func NewChecker(m Matrix) *Checker {
	return &Checker{matrix: m.Clone()}
}

// CheckerFor builds a checker over the subject's copy without cloning it again.
func CheckerFor(s Subject) *Checker {
	if s == nil {
		return nil
	}
	return &Checker{matrix: s.PermissionMatrix()}
}

// HasPermission reports whether the stored level for module is at least required.
// For plant_operations a nil scope means "at least required on any category/unit".
// An unknown required level denies.
func (c *Checker) HasPermission(module string, required Level, scope *Scope) bool {
	if c == nil || !required.Valid() {
		return false
	}

	mod, ok := ParseModule(module)
	if !ok {
		return false
	}

	if mod != ModulePlantOperations {
		return c.matrix.Level(mod).AtLeast(required)
	}

	if scope != nil {
		return c.matrix.PlantLevel(scope.Category, scope.Unit).AtLeast(required)
	}

	for _, units := range c.matrix.PlantOperations {
		for _, lvl := range units {
			if lvl.Valid() && lvl.AtLeast(required) {
				return true
			}
		}
	}
	return false
}

func (c *Checker) CanRead(module Module) bool {
	return c.HasPermission(string(module), LevelRead, nil)
}

func (c *Checker) CanWrite(module Module) bool {
	return c.HasPermission(string(module), LevelWrite, nil)
}

func (c *Checker) CanReadPlant(category, unit string) bool {
	return c.HasPermission(string(ModulePlantOperations), LevelRead, &Scope{Category: category, Unit: unit})
}

func (c *Checker) CanWritePlant(category, unit string) bool {
	return c.HasPermission(string(ModulePlantOperations), LevelWrite, &Scope{Category: category, Unit: unit})
}

// ReadablePlantScopes lists the scopes with at least READ, sorted by category then unit.
func (c *Checker) ReadablePlantScopes() []Scope {
	if c == nil {
		return nil
	}
	return c.matrix.Scopes(LevelRead)
}

func (c *Checker) Matrix() Matrix {
	if c == nil {
		return NewMatrix()
	}
	return c.matrix.Clone()
}
