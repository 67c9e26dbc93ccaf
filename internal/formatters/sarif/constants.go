// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sarif

// SARIF specification constants
const (
	// SARIFSchemaURL is the URL to the SARIF 2.1.0 JSON schema
	SARIFSchemaURL = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/refs/heads/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

	// SARIFVersion is the SARIF specification version
	SARIFVersion = "2.1.0"
)

// ToolName is the driver name reported in SARIF output
const ToolName = "codeproof"

// SARIF level constants
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelNote    = "note"
	LevelNone    = "none"
)

// SuppressionKindExternal marks suppressions that live in the suppression file
const SuppressionKindExternal = "external"

// categoryHelp is the remediation text shown for each rule category
var categoryHelp = map[string]string{
	"secret": "Secrets should never be committed. Remove the value, rotate it if it was ever pushed, " +
		"and load it from the environment instead (codeproof move-secret automates this).",
	"dangerous": "Dynamic code execution on untrusted input allows code injection. " +
		"Replace eval/exec with a parser or an explicit dispatch table.",
	"config": "Development settings should not reach production. " +
		"Move environment-specific flags into per-environment configuration.",
}
