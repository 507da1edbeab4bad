package compliance

import "github.com/clearway/clearway/pkg/models"

// Built-in framework names.
const (
	FrameworkGDPR  = "GDPR"
	FrameworkHIPAA = "HIPAA"
	FrameworkPCI   = "PCI-DSS"
	FrameworkSOX   = "SOX"
)

// BuiltinFrameworks returns the regulatory rulesets shipped with the engine.
// Deployments may extend or override them through the registry config file.
func BuiltinFrameworks() []Framework {
	return []Framework{
		{
			Name: FrameworkGDPR,
			Rules: []Rule{
				{
					Name:           "consent_mechanism",
					Severity:       models.SeverityCritical,
					Message:        "no consent mechanism declared for personal data processing",
					Recommendation: "declare an explicit consent capture and withdrawal mechanism",
					Check:          RequireFlag("consent_mechanism"),
				},
				{
					Name:           "retention_policy",
					Severity:       models.SeverityHigh,
					Message:        "no data retention policy defined",
					Recommendation: "define retention periods per data category and an enforcement job",
					Check:          RequireFlag("retention_policy"),
				},
				{
					Name:           "deletion_capability",
					Severity:       models.SeverityHigh,
					Message:        "no erasure capability for data subject requests",
					Recommendation: "implement deletion across primary storage and backups",
					Check:          RequireFlag("deletion_capability"),
				},
				{
					Name:           "portability_support",
					Severity:       models.SeverityMedium,
					Message:        "data portability export is not supported",
					Recommendation: "provide a machine-readable export of subject data",
					Check:          RequireFlag("portability_support"),
				},
				{
					Name:           "purpose_limitation",
					Severity:       models.SeverityMedium,
					Message:        "processing purpose is not stated",
					Recommendation: "document the processing purpose and restrict use to it",
					Check:          RequirePresent("processing_purpose"),
				},
			},
		},
		{
			Name: FrameworkHIPAA,
			Rules: []Rule{
				{
					Name:           "phi_encryption",
					Severity:       models.SeverityCritical,
					Message:        "PHI is not encrypted at rest and in transit",
					Recommendation: "enable encryption for all PHI stores and transport channels",
					Check:          RequireFlag("phi_encryption"),
				},
				{
					Name:           "access_controls",
					Severity:       models.SeverityHigh,
					Message:        "role-based access controls for PHI are missing",
					Recommendation: "enforce least-privilege access with unique user identification",
					Check:          RequireFlag("access_controls"),
				},
				{
					Name:           "audit_logging",
					Severity:       models.SeverityHigh,
					Message:        "PHI access is not audit logged",
					Recommendation: "record every PHI access with actor and timestamp",
					Check:          RequireFlag("audit_logging"),
				},
				{
					Name:           "business_associate_agreement",
					Severity:       models.SeverityMedium,
					Message:        "no business associate agreement on file",
					Recommendation: "execute a BAA with every third party handling PHI",
					Check:          RequireFlag("business_associate_agreement"),
				},
			},
		},
		{
			Name: FrameworkPCI,
			Rules: []Rule{
				{
					Name:           "cardholder_data_encryption",
					Severity:       models.SeverityCritical,
					Message:        "cardholder data is stored without encryption",
					Recommendation: "encrypt stored cardholder data or stop storing it",
					Check:          RequireFlag("cardholder_data_encryption"),
				},
				{
					Name:           "network_segmentation",
					Severity:       models.SeverityHigh,
					Message:        "cardholder data environment is not segmented",
					Recommendation: "isolate the cardholder data environment from the rest of the network",
					Check:          RequireFlag("network_segmentation"),
				},
				{
					Name:           "vulnerability_scanning",
					Severity:       models.SeverityMedium,
					Message:        "no recurring vulnerability scans configured",
					Recommendation: "schedule quarterly scans and remediate findings",
					Check:          RequireFlag("vulnerability_scanning"),
				},
				{
					Name:           "no_pan_storage",
					Severity:       models.SeverityHigh,
					Message:        "full PAN retention is not ruled out",
					Recommendation: "tokenize or truncate primary account numbers",
					Check:          RequireFlag("no_pan_storage"),
				},
			},
		},
		{
			Name: FrameworkSOX,
			Rules: []Rule{
				{
					Name:           "change_management",
					Severity:       models.SeverityHigh,
					Message:        "no change management process for financial systems",
					Recommendation: "require approved change tickets for production changes",
					Check:          RequireFlag("change_management"),
				},
				{
					Name:           "segregation_of_duties",
					Severity:       models.SeverityHigh,
					Message:        "segregation of duties is not enforced",
					Recommendation: "separate development, approval and deployment roles",
					Check:          RequireFlag("segregation_of_duties"),
				},
				{
					Name:           "financial_audit_trail",
					Severity:       models.SeverityMedium,
					Message:        "financial transactions lack an audit trail",
					Recommendation: "log all financial record mutations immutably",
					Check:          RequireFlag("financial_audit_trail"),
				},
			},
		},
	}
}
