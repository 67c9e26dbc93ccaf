// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sarif

// SARIFReport represents the top-level SARIF document structure
// conforming to SARIF 2.1.0 specification
type SARIFReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single analysis run
type SARIFRun struct {
	Tool        SARIFTool              `json:"tool"`
	Invocations []SARIFInvocation      `json:"invocations,omitempty"`
	Results     []SARIFResult          `json:"results"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// SARIFInvocation describes the run outcome
type SARIFInvocation struct {
	ExecutionSuccessful bool                `json:"executionSuccessful"`
	EndTimeUTC          string              `json:"endTimeUtc,omitempty"`
	ToolNotifications   []SARIFNotification `json:"toolExecutionNotifications,omitempty"`
}

// SARIFNotification is a non-result message such as a reviewer failure
type SARIFNotification struct {
	Level   string       `json:"level"`
	Message SARIFMessage `json:"message"`
}

// SARIFTool represents the analysis tool that produced the results
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver represents the tool driver information
type SARIFDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
	Rules           []SARIFRule `json:"rules,omitempty"`
}

// SARIFRule represents a reporting descriptor for a rule
type SARIFRule struct {
	ID               string                 `json:"id"`
	ShortDescription SARIFMessage           `json:"shortDescription"`
	FullDescription  SARIFMessage           `json:"fullDescription,omitempty"`
	Help             SARIFMessage           `json:"help,omitempty"`
	Properties       map[string]interface{} `json:"properties,omitempty"`
}

// SARIFResult represents a single result (finding) from the analysis
type SARIFResult struct {
	RuleID       string                 `json:"ruleId"`
	RuleIndex    *int                   `json:"ruleIndex,omitempty"`
	Level        string                 `json:"level"`
	Message      SARIFMessage           `json:"message"`
	Locations    []SARIFLocation        `json:"locations,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
	Suppressions []SARIFSuppression     `json:"suppressions,omitempty"`
}

// SARIFLocation represents the location of a result
type SARIFLocation struct {
	PhysicalLocation SARIFPhysicalLocation `json:"physicalLocation"`
}

// SARIFPhysicalLocation represents a physical location in a file
type SARIFPhysicalLocation struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
	Region           SARIFRegion           `json:"region"`
}

// SARIFArtifactLocation represents the location of an artifact (file)
type SARIFArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFRegion represents a region within a file
type SARIFRegion struct {
	StartLine int           `json:"startLine"`
	Snippet   *SARIFSnippet `json:"snippet,omitempty"`
}

// SARIFSnippet represents a snippet of text from a file
type SARIFSnippet struct {
	Text string `json:"text"`
}

// SARIFMessage represents a message string
type SARIFMessage struct {
	Text string `json:"text"`
}

// SARIFSuppression represents information about a suppressed result
type SARIFSuppression struct {
	Kind          string `json:"kind"`
	Status        string `json:"status,omitempty"`
	Justification string `json:"justification,omitempty"`
}
