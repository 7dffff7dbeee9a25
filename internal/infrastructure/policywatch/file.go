package policywatch

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// File is the on-disk policy document:
//
//	thresholds_hours:
//	  CRITICAL: 4
//	  HIGH: 8
//	  MEDIUM: 24
//	  LOW: 72
type File struct {
	ThresholdsHours map[string]float64 `yaml:"thresholds_hours"`
}

// Parse decodes a policy document. Priorities missing from the document keep
// the value from base. The result must pass sla.Policy.Validate.
func Parse(data []byte, base sla.Policy) (sla.Policy, error) {
	var doc File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return sla.Policy{}, fmt.Errorf("%w: decode: %v", apperrors.ErrInvalidPolicy, err)
	}
	if len(doc.ThresholdsHours) == 0 {
		return sla.Policy{}, fmt.Errorf("%w: thresholds_hours is empty", apperrors.ErrInvalidPolicy)
	}

	hours := make(map[domain.TicketPriority]float64, len(domain.AllPriorities))
	for _, p := range domain.AllPriorities {
		hours[p] = base.ThresholdFor(p).Hours()
	}
	for key, h := range doc.ThresholdsHours {
		hours[domain.TicketPriority(strings.ToUpper(strings.TrimSpace(key)))] = h
	}

	policy := sla.PolicyFromHours(hours)
	if err := policy.Validate(); err != nil {
		return sla.Policy{}, err
	}
	return policy, nil
}

// Load reads and parses the policy file at path.
func Load(path string, base sla.Policy) (sla.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sla.Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data, base)
}
