// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sarif

import (
	"codeproof/internal/rules"
)

// RuleManager builds SARIF reporting descriptors from the rule catalog
type RuleManager struct {
	index map[string]int
	rules []SARIFRule
}

// NewRuleManager creates descriptors for every rule in set, in catalog order
func NewRuleManager(set *rules.Set) *RuleManager {
	rm := &RuleManager{index: make(map[string]int)}
	for _, def := range set.Rules() {
		rm.index[def.ID] = len(rm.rules)
		rm.rules = append(rm.rules, SARIFRule{
			ID:               def.ID,
			ShortDescription: SARIFMessage{Text: def.Message},
			FullDescription:  SARIFMessage{Text: def.Message},
			Help:             SARIFMessage{Text: categoryHelp[string(def.Category)]},
			Properties: map[string]interface{}{
				"category":        string(def.Category),
				"defaultSeverity": string(def.Severity),
				"confidence":      string(def.BaseConfidence),
			},
		})
	}
	return rm
}

// RuleIndex returns the position of id in the driver rules array
func (rm *RuleManager) RuleIndex(id string) (int, bool) {
	i, ok := rm.index[id]
	return i, ok
}

// GetAllRules returns all descriptors for the tool.driver.rules array
func (rm *RuleManager) GetAllRules() []SARIFRule {
	out := make([]SARIFRule, len(rm.rules))
	copy(out, rm.rules)
	return out
}
