package manifest

import "strings"

// ConfigKind is the declared usage scope of a dependency.
type ConfigKind string

const (
	KindImplementation      ConfigKind = "implementation"
	KindAPI                 ConfigKind = "api"
	KindTest                ConfigKind = "test"
	KindDebug               ConfigKind = "debug"
	KindAnnotationProcessor ConfigKind = "annotationProcessor"
)

// Declaration is one dependency statement parsed from a manifest.
type Declaration struct {
	Group      string
	Artifact   string
	Version    string // literal ("1.2.3") or variable reference ("$kotlinVersion")
	LineNumber int    // 1-based
	RawLine    string // trimmed source text
	ConfigKind ConfigKind
}

// Coordinate returns the group:artifact:version triple.
func (d Declaration) Coordinate() string {
	return d.Group + ":" + d.Artifact + ":" + d.Version
}

// Module returns group:artifact without the version.
func (d Declaration) Module() string {
	return d.Group + ":" + d.Artifact
}

// HasVariableVersion reports whether the version is a build-script variable
// rather than a literal.
func (d Declaration) HasVariableVersion() bool {
	return strings.Contains(d.Version, "$")
}
