package store

import "time"

const LockVersion = 1

type Section string

const (
	SectionComponents Section = "components"
	SectionConfigs    Section = "configs"
)

// Lockfile is the aster.lock document.
type Lockfile struct {
	LockfileVersion int              `json:"lockfileVersion"`
	Components      map[string]Entry `json:"components"`
	Configs         map[string]Entry `json:"configs"`
}

// Entry records one installed resource. Files lists every path written
// for it, relative to the project root.
type Entry struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installedAt"`
	Source      string    `json:"source"`
	Files       []string  `json:"files"`
}
