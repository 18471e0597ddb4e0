// Package depcheck decides from file timestamps whether an asset's derived
// artifacts must be regenerated.
package depcheck

import (
	"go.uber.org/zap"

	"github.com/Faultbox/assetpipe/internal/assetpath"
	"github.com/Faultbox/assetpipe/internal/vfs"
)

// NeedsConversion reports whether derived is stale relative to driver.
// A missing derived file is stale even when the driver is missing too.
// A missing driver next to an existing derived file is not stale.
func NeedsConversion(fs vfs.FS, driver, derived string) bool {
	derivedTime, ok := fs.ModTime(derived)
	if !ok {
		return true
	}
	driverTime, ok := fs.ModTime(driver)
	if !ok {
		return false
	}
	return driverTime.After(derivedTime)
}

// Check is one driver/derived pair.
type Check struct {
	Name    string
	Driver  string
	Derived string
	Stale   bool
}

// Report holds every check made for one asset.
type Report struct {
	Asset  assetpath.Identity
	Checks []Check
}

// Stale reports whether any check is stale.
func (r Report) Stale() bool {
	for _, c := range r.Checks {
		if c.Stale {
			return true
		}
	}
	return false
}

// Analyzer runs the fixed set of checks for an asset.
type Analyzer struct {
	fs  vfs.FS
	log *zap.Logger
}

// NewAnalyzer creates an Analyzer. log may be nil.
func NewAnalyzer(fs vfs.FS, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{fs: fs, log: log}
}

// pairs lists the driver/derived pairs of an asset in evaluation order.
func pairs(id assetpath.Identity) []Check {
	return []Check{
		{Name: "source/model", Driver: id.Source(), Derived: id.Model()},
		{Name: "constants/model", Driver: id.Constants(), Derived: id.Model()},
		{Name: "attributes/model", Driver: id.Attributes(), Derived: id.Model()},
		{Name: "physics/physmodel", Driver: id.Physics(), Derived: id.PhysicsModel()},
		{Name: "source/mesh", Driver: id.Source(), Derived: id.Mesh()},
		{Name: "physics/mesh", Driver: id.Physics(), Derived: id.Mesh()},
	}
}

// Check evaluates every pair for the asset at assetPath.
func (a *Analyzer) Check(assetPath string) Report {
	id := assetpath.FromPath(assetPath)
	checks := pairs(id)
	for i := range checks {
		checks[i].Stale = NeedsConversion(a.fs, checks[i].Driver, checks[i].Derived)
	}
	return Report{Asset: id, Checks: checks}
}

// NeedsExport reports whether the asset at assetPath must be exported.
func (a *Analyzer) NeedsExport(assetPath string) bool {
	report := a.Check(assetPath)
	for _, c := range report.Checks {
		if c.Stale {
			a.log.Debug("stale artifact",
				zap.String("asset", report.Asset.String()),
				zap.String("check", c.Name),
				zap.String("derived", c.Derived))
		}
	}
	return report.Stale()
}
