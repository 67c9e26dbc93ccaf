// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package envref decides how rewritten source reads a moved secret back
// from the environment.
package envref

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"codeproof/internal/paths"
)

// Strategy is the access expression family used in rewritten code
type Strategy string

const (
	StrategyProcessEnv Strategy = "process.env"
	StrategyImportMeta Strategy = "import.meta.env"
	// StrategyNext reads process.env but only front-end files get the public prefix
	StrategyNext Strategy = "next"
)

// Public prefixes expose a variable to browser bundles
const (
	PrefixVite  = "VITE_"
	PrefixNext  = "NEXT_PUBLIC_"
	PrefixReact = "REACT_APP_"
)

// Convention is the detected strategy plus its variable prefix
type Convention struct {
	Strategy Strategy
	Prefix   string
}

// Default is plain process.env access with no prefix
var Default = Convention{Strategy: StrategyProcessEnv}

type manifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// DetectStrategy reads package.json under root. A missing or unparseable
// manifest yields Default.
func DetectStrategy(root string) Convention {
	data, err := os.ReadFile(paths.ManifestFile(root))
	if err != nil {
		return Default
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Default
	}
	has := func(name string) bool {
		_, ok := m.Dependencies[name]
		if !ok {
			_, ok = m.DevDependencies[name]
		}
		return ok
	}

	switch {
	case has("vite") || has("vitest"):
		return Convention{Strategy: StrategyImportMeta, Prefix: PrefixVite}
	case has("next"):
		return Convention{Strategy: StrategyNext, Prefix: PrefixNext}
	case has("react-scripts"):
		return Convention{Strategy: StrategyProcessEnv, Prefix: PrefixReact}
	default:
		return Default
	}
}

var (
	frontendDirs   = regexp.MustCompile(`/(components|pages|app|client|public)/`)
	frontendSuffix = regexp.MustCompile(`\.(client|component)\.(js|ts|jsx|tsx)$`)
)

// IsFrontendFile classifies a project-relative path by directory segment or
// file suffix. The heuristic is best effort and can misclassify.
func IsFrontendFile(path string) bool {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return frontendDirs.MatchString(p) || frontendSuffix.MatchString(p)
}

// KeyFor returns the environment key that the reference for filePath reads
func KeyFor(varName string, conv Convention, filePath string) string {
	if conv.Strategy == StrategyNext && !IsFrontendFile(filePath) {
		return varName
	}
	return conv.Prefix + varName
}

// Reference returns the expression that replaces the literal in filePath
func Reference(varName string, conv Convention, filePath string) string {
	key := KeyFor(varName, conv, filePath)
	if conv.Strategy == StrategyImportMeta {
		return "import.meta.env." + key
	}
	return "process.env." + key
}

// IsPublicKey reports whether key is exposed to client bundles by its prefix
func IsPublicKey(key string) bool {
	for _, prefix := range []string{PrefixVite, PrefixNext, PrefixReact} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
