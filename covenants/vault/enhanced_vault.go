// Package vault implements enhanced Shell Reserve vault covenants for Phase γ.1
// This provides production-grade institutional custody with complex multi-signature policies.
package vault

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/rbellamy/primegap/chaincfg/chainhash"
)

// Enhanced vault system for Phase γ.1: Advanced Vault Covenants

// PolicyOperator defines logical operations for policy composition
type PolicyOperator uint8

const (
	PolicyAND PolicyOperator = iota
	PolicyOR
	PolicyNOT
	PolicyXOR
)

// TimeHierarchy defines multiple time delays for institutional custody
type TimeHierarchy struct {
	// Hot: Immediate spending (0 blocks)
	Hot TimePolicy `json:"hot"`

	// Warm: Short delay for operational security (e.g., 144 blocks = ~12 hours)
	Warm TimePolicy `json:"warm"`

	// Cold: Standard recovery delay (e.g., 4320 blocks = ~15 days)
	Cold TimePolicy `json:"cold"`

	// Emergency: Disaster recovery (e.g., 52560 blocks = ~6 months)
	Emergency TimePolicy `json:"emergency"`
}

// TimePolicy defines spending conditions with time constraints
type TimePolicy struct {
	// Threshold number of signatures required
	Threshold uint8 `json:"threshold"`

	// Total number of keys in the set
	KeyCount uint8 `json:"key_count"`

	// Block delay before this policy becomes active
	BlockDelay uint32 `json:"block_delay"`

	// Maximum time window for spending (0 = no limit)
	TimeWindow uint32 `json:"time_window"`

	// Public keys for this policy level
	Keys []btcec.PublicKey `json:"-"` // Excluded from JSON for size
}

// PolicyComposition allows complex logical combinations of spending policies
type PolicyComposition struct {
	// Operator for combining policies
	Operator PolicyOperator `json:"operator"`

	// Left operand (can be another composition or time policy)
	Left interface{} `json:"left"`

	// Right operand (can be another composition or time policy)
	Right interface{} `json:"right"`
}

// VaultInheritance defines automatic policy transitions over time
type VaultInheritance struct {
	// Initial policy hierarchy
	Initial TimeHierarchy `json:"initial"`

	// Transitions to apply over time
	Transitions []PolicyTransition `json:"transitions"`

	// Final policy after all transitions
	Final TimeHierarchy `json:"final"`
}

// PolicyTransition defines a change in vault policy at a specific time/block
type PolicyTransition struct {
	// Block height when transition activates
	ActivationHeight uint32 `json:"activation_height"`

	// New policy to transition to
	NewPolicy TimeHierarchy `json:"new_policy"`

	// Optional: Reason for transition (governance, security, etc.)
	Reason string `json:"reason,omitempty"`
}

// EmergencyRecovery defines disaster recovery protocols
type EmergencyRecovery struct {
	// Guardian keys with emergency powers
	GuardianKeys []btcec.PublicKey `json:"-"`

	// Number of guardians required for emergency recovery
	GuardianThreshold uint8 `json:"guardian_threshold"`

	// Time delay for emergency recovery (e.g., 52560 blocks = ~6 months)
	EmergencyDelay uint32 `json:"emergency_delay"`

	// Recovery destination script hash
	RecoveryScript [32]byte `json:"recovery_script"`

	// Optional: External approval required (regulatory, board, etc.)
	ExternalApproval bool `json:"external_approval"`
}

// EnhancedVaultTemplate represents a complete institutional vault policy
type EnhancedVaultTemplate struct {
	// Version for future upgrades
	Version uint16 `json:"version"`

	// Creation timestamp
	CreatedAt uint32 `json:"created_at"`

	// Time-based policy hierarchy
	Hierarchy TimeHierarchy `json:"hierarchy"`

	// Optional: Complex policy composition
	Composition *PolicyComposition `json:"composition,omitempty"`

	// Optional: Vault inheritance rules
	Inheritance *VaultInheritance `json:"inheritance,omitempty"`

	// Emergency recovery protocols
	Emergency EmergencyRecovery `json:"emergency"`

	// Compliance features
	ComplianceHooks ComplianceHooks `json:"compliance"`
}

// ComplianceHooks defines regulatory compliance features
type ComplianceHooks struct {
	// Require external attestation for large amounts
	AttestationThreshold uint64 `json:"attestation_threshold"`

	// Time delay for compliance review
	ComplianceDelay uint32 `json:"compliance_delay"`

	// Authorized compliance validators
	Validators []btcec.PublicKey `json:"-"`

	// Required validator signatures
	ValidatorThreshold uint8 `json:"validator_threshold"`
}

// Enhanced vault creation and management functions

// CreateSovereignWealthFundVault creates a vault optimized for sovereign wealth fund custody
func CreateSovereignWealthFundVault(hotKeys, warmKeys, coldKeys, emergencyKeys []btcec.PublicKey) (*EnhancedVaultTemplate, error) {
	if len(hotKeys) < 15 || len(warmKeys) < 7 || len(coldKeys) < 5 || len(emergencyKeys) < 3 {
		return nil, fmt.Errorf("insufficient keys for sovereign wealth fund vault")
	}

	hierarchy := TimeHierarchy{
		Hot: TimePolicy{
			Threshold:  11,
			KeyCount:   15,
			BlockDelay: 0,
			TimeWindow: 0,
			Keys:       hotKeys[:15],
		},
		Warm: TimePolicy{
			Threshold:  5,
			KeyCount:   7,
			BlockDelay: 144,  // ~12 hours
			TimeWindow: 2016, // ~1 week window
			Keys:       warmKeys[:7],
		},
		Cold: TimePolicy{
			Threshold:  3,
			KeyCount:   5,
			BlockDelay: 4320, // ~15 days
			TimeWindow: 0,    // No time limit
			Keys:       coldKeys[:5],
		},
		Emergency: TimePolicy{
			Threshold:  2,
			KeyCount:   3,
			BlockDelay: 52560, // ~6 months
			TimeWindow: 0,
			Keys:       emergencyKeys[:3],
		},
	}

	emergency := EmergencyRecovery{
		GuardianKeys:      emergencyKeys,
		GuardianThreshold: 2,
		EmergencyDelay:    52560, // ~6 months
		ExternalApproval:  true,  // Require board/regulatory approval
	}

	compliance := ComplianceHooks{
		AttestationThreshold: 1000000 * 1e8, // 1M XSL threshold
		ComplianceDelay:      1008,          // ~3.5 days
		ValidatorThreshold:   2,             // Require 2 compliance validators
	}

	template := &EnhancedVaultTemplate{
		Version:         1,
		CreatedAt:       uint32(time.Now().Unix()),
		Hierarchy:       hierarchy,
		Emergency:       emergency,
		ComplianceHooks: compliance,
	}

	return template, nil
}

// CreateCentralBankReserveVault creates a vault for central bank reserve management
func CreateCentralBankReserveVault(operationalKeys, boardKeys, emergencyKeys []btcec.PublicKey) (*EnhancedVaultTemplate, error) {
	if len(operationalKeys) < 21 || len(boardKeys) < 9 || len(emergencyKeys) < 5 {
		return nil, fmt.Errorf("insufficient keys for central bank vault")
	}

	// Central banks need higher security thresholds
	hierarchy := TimeHierarchy{
		Hot: TimePolicy{
			Threshold:  15,
			KeyCount:   21,
			BlockDelay: 0,
			TimeWindow: 1440, // 5-day window for operational spending
			Keys:       operationalKeys[:21],
		},
		Warm: TimePolicy{
			Threshold:  7,
			KeyCount:   9,
			BlockDelay: 1008, // ~3.5 days (governance review)
			TimeWindow: 4320, // 15-day window
			Keys:       boardKeys[:9],
		},
		Cold: TimePolicy{
			Threshold:  5,
			KeyCount:   7,
			BlockDelay: 12960, // ~45 days
			TimeWindow: 0,
			Keys:       boardKeys[:7],
		},
		Emergency: TimePolicy{
			Threshold:  3,
			KeyCount:   5,
			BlockDelay: 105120, // ~1 year (major crisis)
			TimeWindow: 0,
			Keys:       emergencyKeys[:5],
		},
	}

	// Central banks have strict emergency protocols
	emergency := EmergencyRecovery{
		GuardianKeys:      emergencyKeys,
		GuardianThreshold: 4,      // High threshold for central banks
		EmergencyDelay:    105120, // 1 year
		ExternalApproval:  true,   // Require parliamentary/regulatory approval
	}

	// Strong compliance requirements
	compliance := ComplianceHooks{
		AttestationThreshold: 10000 * 1e8, // 10K XSL threshold
		ComplianceDelay:      2016,        // ~1 week compliance review
		ValidatorThreshold:   3,           // 3 compliance validators required
	}

	template := &EnhancedVaultTemplate{
		Version:         1,
		CreatedAt:       uint32(time.Now().Unix()),
		Hierarchy:       hierarchy,
		Emergency:       emergency,
		ComplianceHooks: compliance,
	}

	return template, nil
}

// Policy evaluation functions

// EvaluateSpendingPolicy determines if a spending attempt satisfies the vault policy
func (evt *EnhancedVaultTemplate) EvaluateSpendingPolicy(
	sigCount uint8,
	blockHeight uint32,
	lockTime uint32,
	amount uint64,
) (*PolicyEvaluationResult, error) {

	result := &PolicyEvaluationResult{
		Approved: false,
		Policy:   "",
		Reason:   "",
	}

	// Check time hierarchy policies in order
	policies := []struct {
		name   string
		policy TimePolicy
	}{
		{"hot", evt.Hierarchy.Hot},
		{"warm", evt.Hierarchy.Warm},
		{"cold", evt.Hierarchy.Cold},
		{"emergency", evt.Hierarchy.Emergency},
	}

	for _, p := range policies {
		if evt.evaluateTimePolicy(p.policy, sigCount, blockHeight, lockTime) {
			// Check compliance requirements for large amounts
			if amount >= evt.ComplianceHooks.AttestationThreshold {
				if !evt.checkCompliance(blockHeight) {
					result.Reason = "compliance review required for large amount"
					return result, nil
				}
			}

			result.Approved = true
			result.Policy = p.name
			result.Reason = fmt.Sprintf("approved via %s policy", p.name)
			return result, nil
		}
	}

	result.Reason = "no policy satisfied"
	return result, nil
}

// PolicyEvaluationResult contains the result of policy evaluation
type PolicyEvaluationResult struct {
	Approved bool   `json:"approved"`
	Policy   string `json:"policy"`
	Reason   string `json:"reason"`
}

// evaluateTimePolicy checks if a time policy is satisfied
func (evt *EnhancedVaultTemplate) evaluateTimePolicy(
	policy TimePolicy,
	sigCount uint8,
	blockHeight uint32,
	lockTime uint32,
) bool {
	// Check signature threshold
	if sigCount < policy.Threshold {
		return false
	}

	// Check time delay
	if blockHeight < lockTime+policy.BlockDelay {
		return false
	}

	// Check time window (if specified)
	if policy.TimeWindow > 0 {
		if blockHeight > lockTime+policy.BlockDelay+policy.TimeWindow {
			return false
		}
	}

	return true
}

// checkCompliance verifies compliance requirements are met
func (evt *EnhancedVaultTemplate) checkCompliance(blockHeight uint32) bool {
	// Simplified compliance check - in practice this would verify
	// external attestations and validator signatures
	return true // Placeholder implementation
}

// Hash calculates the cryptographic hash of the enhanced vault template
func (evt *EnhancedVaultTemplate) Hash() chainhash.Hash {
	data := evt.Serialize()
	hash := sha256.Sum256(data)
	return chainhash.Hash(hash)
}

// Serialize converts the enhanced vault template to bytes
func (evt *EnhancedVaultTemplate) Serialize() []byte {
	// Simplified serialization - in practice this would use a proper
	// binary format or protobuf for efficiency
	data := make([]byte, 0, 512)

	// Version
	versionBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(versionBytes, evt.Version)
	data = append(data, versionBytes...)

	// Creation timestamp
	timestampBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(timestampBytes, evt.CreatedAt)
	data = append(data, timestampBytes...)

	// Serialize hierarchy (simplified)
	data = append(data, evt.serializeHierarchy()...)

	// Emergency and compliance data
	data = append(data, evt.serializeEmergency()...)
	data = append(data, evt.serializeCompliance()...)

	return data
}

// serializeHierarchy serializes the time hierarchy
func (evt *EnhancedVaultTemplate) serializeHierarchy() []byte {
	data := make([]byte, 0, 64)

	policies := []TimePolicy{
		evt.Hierarchy.Hot,
		evt.Hierarchy.Warm,
		evt.Hierarchy.Cold,
		evt.Hierarchy.Emergency,
	}

	for _, policy := range policies {
		data = append(data, policy.Threshold)
		data = append(data, policy.KeyCount)

		delayBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(delayBytes, policy.BlockDelay)
		data = append(data, delayBytes...)

		windowBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(windowBytes, policy.TimeWindow)
		data = append(data, windowBytes...)
	}

	return data
}

// serializeEmergency serializes emergency recovery data
func (evt *EnhancedVaultTemplate) serializeEmergency() []byte {
	data := make([]byte, 0, 64)

	data = append(data, evt.Emergency.GuardianThreshold)

	delayBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(delayBytes, evt.Emergency.EmergencyDelay)
	data = append(data, delayBytes...)

	data = append(data, evt.Emergency.RecoveryScript[:]...)

	if evt.Emergency.ExternalApproval {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}

	return data
}

// serializeCompliance serializes compliance hooks
func (evt *EnhancedVaultTemplate) serializeCompliance() []byte {
	data := make([]byte, 0, 32)

	thresholdBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(thresholdBytes, evt.ComplianceHooks.AttestationThreshold)
	data = append(data, thresholdBytes...)

	delayBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(delayBytes, evt.ComplianceHooks.ComplianceDelay)
	data = append(data, delayBytes...)

	data = append(data, evt.ComplianceHooks.ValidatorThreshold)

	return data
}

// GetActivePolicy returns the currently active policy for spending
func (evt *EnhancedVaultTemplate) GetActivePolicy(blockHeight, lockTime uint32) string {
	// Check policies in reverse order (emergency -> cold -> warm -> hot)
	// to return the most permissive policy that's currently available
	policies := []struct {
		name   string
		policy TimePolicy
	}{
		{"emergency", evt.Hierarchy.Emergency},
		{"cold", evt.Hierarchy.Cold},
		{"warm", evt.Hierarchy.Warm},
		{"hot", evt.Hierarchy.Hot},
	}

	for _, p := range policies {
		// Check if policy is available (past delay time)
		if blockHeight >= lockTime+p.policy.BlockDelay {
			// Check if within time window (if specified)
			if p.policy.TimeWindow == 0 || blockHeight <= lockTime+p.policy.BlockDelay+p.policy.TimeWindow {
				return p.name
			}
		}
	}

	return "none"
}

// GetTimeToNextPolicy calculates time until the next policy level becomes available
func (evt *EnhancedVaultTemplate) GetTimeToNextPolicy(blockHeight, lockTime uint32) time.Duration {
	policies := []TimePolicy{
		evt.Hierarchy.Hot,
		evt.Hierarchy.Warm,
		evt.Hierarchy.Cold,
		evt.Hierarchy.Emergency,
	}

	for _, policy := range policies {
		activationHeight := lockTime + policy.BlockDelay
		if blockHeight < activationHeight {
			blocksRemaining := activationHeight - blockHeight
			return time.Duration(blocksRemaining*5) * time.Minute // 5-minute blocks
		}
	}

	return 0 // All policies available
}
