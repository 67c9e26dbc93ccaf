// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeproof/internal/finding"
	"codeproof/internal/paths"

	"gopkg.in/yaml.v3"
)

// DefaultExpiry is how long a new suppression stays active
const DefaultExpiry = 7 * 24 * time.Hour

const configVersion = "1.0"

// SuppressionRule represents a single suppression rule
type SuppressionRule struct {
	ID         string            `yaml:"id"`
	Hash       string            `yaml:"hash"`
	Reason     string            `yaml:"reason"`
	Enabled    bool              `yaml:"enabled"`
	CreatedBy  string            `yaml:"created_by,omitempty"`
	CreatedAt  time.Time         `yaml:"created_at"`
	LastSeenAt *time.Time        `yaml:"last_seen_at,omitempty"`
	ExpiresAt  *time.Time        `yaml:"expires_at,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
}

func (r SuppressionRule) expiredAt(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// SuppressionConfig represents the suppression configuration file
type SuppressionConfig struct {
	Version string            `yaml:"version"`
	Rules   []SuppressionRule `yaml:"rules"`
}

// SuppressionManager handles finding suppressions for one project
type SuppressionManager struct {
	configPath string
	root       string
	config     *SuppressionConfig
	enabled    bool
	now        func() time.Time
}

// NewSuppressionManager loads the suppression file for root. configPath
// defaults to the project file. A missing file is an empty configuration; an
// unparseable one is an error.
func NewSuppressionManager(configPath, root string) (*SuppressionManager, error) {
	if configPath == "" {
		configPath = paths.SuppressionsFile(root)
	}

	sm := &SuppressionManager{
		configPath: configPath,
		root:       root,
		enabled:    true,
		now:        time.Now,
		config:     &SuppressionConfig{Version: configVersion, Rules: []SuppressionRule{}},
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if errors.Is(err, os.ErrNotExist) {
		return sm, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read suppression file %s: %w", configPath, err)
	}

	var config SuppressionConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse suppression file %s: %w", configPath, err)
	}
	if config.Version == "" {
		config.Version = configVersion
	}
	sm.config = &config
	return sm, nil
}

// Fingerprint identifies a finding independently of its line number and run.
// The raw match is hashed so the file never stores secret material.
func (sm *SuppressionManager) Fingerprint(f finding.Finding) string {
	components := []string{
		f.RuleID,
		paths.Relative(sm.root, f.FilePath),
		strings.TrimSpace(f.Snippet),
		hashSensitiveData(f.Match),
	}
	hash := sha256.Sum256([]byte(strings.Join(components, "|")))
	return fmt.Sprintf("%x", hash)
}

func hashSensitiveData(data string) string {
	if data == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)[:16]
}

func (sm *SuppressionManager) metadata(f finding.Finding) map[string]string {
	return map[string]string{
		"rule_id":         f.RuleID,
		"file":            paths.Relative(sm.root, f.FilePath),
		"line_number":     fmt.Sprintf("%d", f.Line),
		"match_text_hash": hashSensitiveData(f.Match),
	}
}

func (sm *SuppressionManager) findByHash(hash string) *SuppressionRule {
	for i := range sm.config.Rules {
		if sm.config.Rules[i].Hash == hash {
			return &sm.config.Rules[i]
		}
	}
	return nil
}

// IsSuppressed reports whether an enabled, unexpired rule covers f
func (sm *SuppressionManager) IsSuppressed(f finding.Finding) (bool, *SuppressionRule) {
	if !sm.enabled {
		return false, nil
	}
	rule := sm.findByHash(sm.Fingerprint(f))
	if rule == nil || !rule.Enabled || rule.expiredAt(sm.now()) {
		return false, nil
	}
	found := *rule
	return true, &found
}

// GetExpiredRule returns the enabled rule for f if it has expired
func (sm *SuppressionManager) GetExpiredRule(f finding.Finding) *SuppressionRule {
	if !sm.enabled {
		return nil
	}
	rule := sm.findByHash(sm.Fingerprint(f))
	if rule == nil || !rule.Enabled || !rule.expiredAt(sm.now()) {
		return nil
	}
	found := *rule
	return &found
}

// FilterResult splits findings by suppression status
type FilterResult struct {
	Kept       []finding.Finding
	Suppressed []finding.Suppressed
	// Expired lists findings whose rule lapsed. They are also in Kept.
	Expired []finding.Suppressed
}

// Filter removes suppressed findings, preserving order
func (sm *SuppressionManager) Filter(findings []finding.Finding) FilterResult {
	var res FilterResult
	for _, f := range findings {
		if ok, rule := sm.IsSuppressed(f); ok {
			res.Suppressed = append(res.Suppressed, finding.Suppressed{Finding: f, SuppressionID: rule.ID, Reason: rule.Reason})
			continue
		}
		if rule := sm.GetExpiredRule(f); rule != nil {
			res.Expired = append(res.Expired, finding.Suppressed{Finding: f, SuppressionID: rule.ID, Reason: rule.Reason, Expired: true})
		}
		res.Kept = append(res.Kept, f)
	}
	return res
}

func (sm *SuppressionManager) nextID(offset int) string {
	maxID := 0
	for _, r := range sm.config.Rules {
		var num int
		if _, err := fmt.Sscanf(r.ID, "SUP-%08d", &num); err == nil && num > maxID {
			maxID = num
		}
	}
	return fmt.Sprintf("SUP-%08d", maxID+offset+1)
}

// AddSuppression adds an enabled rule for f. A nil expiresAt means DefaultExpiry.
func (sm *SuppressionManager) AddSuppression(f finding.Finding, reason, createdBy string, expiresAt *time.Time) (*SuppressionRule, error) {
	hash := sm.Fingerprint(f)
	if sm.findByHash(hash) != nil {
		return nil, fmt.Errorf("suppression rule already exists for this finding")
	}

	now := sm.now()
	if expiresAt == nil {
		expiry := now.Add(DefaultExpiry)
		expiresAt = &expiry
	}

	rule := SuppressionRule{
		ID:        sm.nextID(0),
		Hash:      hash,
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Metadata:  sm.metadata(f),
	}
	sm.config.Rules = append(sm.config.Rules, rule)
	return &rule, sm.saveConfig()
}

// GenerateSuppressionRules records a rule for every finding not already
// covered. Existing rules only get last_seen_at refreshed. New rules are
// disabled unless enabled is set, so a team can review them before opting in.
func (sm *SuppressionManager) GenerateSuppressionRules(findings []finding.Finding, reason string, enabled bool) (added, updated int, err error) {
	now := sm.now()
	expiry := now.Add(DefaultExpiry)
	seen := make(map[string]bool)

	var fresh []SuppressionRule
	for _, f := range findings {
		hash := sm.Fingerprint(f)
		if seen[hash] {
			continue
		}
		seen[hash] = true

		if existing := sm.findByHash(hash); existing != nil {
			existing.LastSeenAt = &now
			updated++
			continue
		}

		fresh = append(fresh, SuppressionRule{
			ID:         sm.nextID(len(fresh)),
			Hash:       hash,
			Reason:     reason,
			Enabled:    enabled,
			CreatedBy:  "generate",
			CreatedAt:  now,
			LastSeenAt: &now,
			ExpiresAt:  &expiry,
			Metadata:   sm.metadata(f),
		})
	}
	sm.config.Rules = append(sm.config.Rules, fresh...)
	added = len(fresh)

	if added > 0 || updated > 0 {
		err = sm.saveConfig()
	}
	return added, updated, err
}

// RemoveSuppression removes a suppression rule by ID
func (sm *SuppressionManager) RemoveSuppression(id string) error {
	for i, rule := range sm.config.Rules {
		if rule.ID == id {
			sm.config.Rules = append(sm.config.Rules[:i], sm.config.Rules[i+1:]...)
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("suppression rule with ID %s not found", id)
}

// EnableSuppression enables a rule by ID or hash, optionally replacing its reason
func (sm *SuppressionManager) EnableSuppression(idOrHash, reason string) error {
	for i := range sm.config.Rules {
		r := &sm.config.Rules[i]
		if r.ID != idOrHash && r.Hash != idOrHash {
			continue
		}
		r.Enabled = true
		if reason != "" {
			r.Reason = reason
		}
		now := sm.now()
		r.LastSeenAt = &now
		return sm.saveConfig()
	}
	return fmt.Errorf("suppression rule %s not found", idOrHash)
}

// DisableSuppressionByID disables a suppression rule by ID
func (sm *SuppressionManager) DisableSuppressionByID(id string) error {
	for i := range sm.config.Rules {
		if sm.config.Rules[i].ID == id {
			sm.config.Rules[i].Enabled = false
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("suppression rule with ID %s not found", id)
}

// ListSuppressions returns all suppression rules
func (sm *SuppressionManager) ListSuppressions() []SuppressionRule {
	out := make([]SuppressionRule, len(sm.config.Rules))
	copy(out, sm.config.Rules)
	return out
}

// CleanupExpired removes expired suppression rules
func (sm *SuppressionManager) CleanupExpired() (int, error) {
	now := sm.now()
	active := make([]SuppressionRule, 0, len(sm.config.Rules))
	for _, rule := range sm.config.Rules {
		if !rule.expiredAt(now) {
			active = append(active, rule)
		}
	}

	removed := len(sm.config.Rules) - len(active)
	if removed == 0 {
		return 0, nil
	}
	sm.config.Rules = active
	return removed, sm.saveConfig()
}

func (sm *SuppressionManager) saveConfig() error {
	data, err := yaml.Marshal(sm.config)
	if err != nil {
		return fmt.Errorf("failed to marshal suppression config: %w", err)
	}

	if dir := filepath.Dir(sm.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(sm.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write suppression config: %w", err)
	}
	return nil
}

// SetEnabled enables or disables the suppression manager
func (sm *SuppressionManager) SetEnabled(enabled bool) {
	sm.enabled = enabled
}

// IsEnabled returns whether the suppression manager is enabled
func (sm *SuppressionManager) IsEnabled() bool {
	return sm.enabled
}

// GetConfigPath returns the path to the suppression config file
func (sm *SuppressionManager) GetConfigPath() string {
	return sm.configPath
}
