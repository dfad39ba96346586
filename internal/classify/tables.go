package classify

import "slices"

// Tables holds the keyword lists the classifier matches against. All entries
// are lowercase and matched as substrings.
type Tables struct {
	SeniorityTitle    []string // title only, forces rejection
	HighTenure        []string // description only, forces rejection
	IdentityPlatforms []string
	CloudPlatforms    []string
	SecurityTools     []string
	IdentityConcepts  []string
	SecurityConcepts  []string
	GoodTitles        []string // title only, first match counts
	SecurityRoles     []string // title terms for the cross-category bonus
	IdentityTerms     []string // description terms for the cross-category bonus
	EntryLevel        []string
	Remote            []string
}

// DefaultTables returns a copy of the built-in keyword tables.
func DefaultTables() Tables {
	t := defaultTables
	t.SeniorityTitle = slices.Clone(t.SeniorityTitle)
	t.HighTenure = slices.Clone(t.HighTenure)
	t.IdentityPlatforms = slices.Clone(t.IdentityPlatforms)
	t.CloudPlatforms = slices.Clone(t.CloudPlatforms)
	t.SecurityTools = slices.Clone(t.SecurityTools)
	t.IdentityConcepts = slices.Clone(t.IdentityConcepts)
	t.SecurityConcepts = slices.Clone(t.SecurityConcepts)
	t.GoodTitles = slices.Clone(t.GoodTitles)
	t.SecurityRoles = slices.Clone(t.SecurityRoles)
	t.IdentityTerms = slices.Clone(t.IdentityTerms)
	t.EntryLevel = slices.Clone(t.EntryLevel)
	t.Remote = slices.Clone(t.Remote)
	return t
}

var defaultTables = Tables{
	SeniorityTitle: []string{
		"senior", "sr.", "sr ", "principal", "architect", "lead", "manager",
		"director", "head", "vp", "vice president", "staff", "distinguished",
		"chief", "executive", "president", "cto", "ciso", "cio",
	},
	HighTenure: []string{
		"7+ years", "8+ years", "10+ years", "12+ years", "15+ years",
		"7 years", "8 years", "10 years", "12 years", "15 years",
		"minimum 7", "minimum 8", "minimum 10", "at least 7", "at least 8",
	},
	IdentityPlatforms: []string{
		"okta", "azure ad", "entra", "sailpoint", "saviynt", "cyberark",
		"ping identity", "forgerock", "one identity", "auth0", "duo",
		"beyondtrust", "delinea", "centrify", "identitynow",
		"thycotic", "hashicorp vault", "keeper", "1password", "lastpass enterprise",
		"jumpcloud", "onelogin", "secureauth", "radiant logic",
	},
	CloudPlatforms: []string{
		"aws", "azure", "gcp", "google cloud", "amazon web services",
		"aws iam", "azure security", "gcp security", "cloud security",
		"aws security hub", "azure sentinel", "azure defender", "gcp security command center",
		"cloudtrail", "cloudwatch", "aws guardduty", "aws config",
		"kubernetes", "k8s", "docker", "container security", "terraform",
		"ansible", "cloud infrastructure", "iac", "infrastructure as code",
	},
	SecurityTools: []string{
		// siem and monitoring
		"splunk", "qradar", "sentinel", "elastic siem", "logrhythm",
		// endpoint
		"crowdstrike", "carbon black", "defender", "sentinelone", "cylance",
		"edr", "xdr", "mdm", "endpoint protection",
		// network
		"palo alto", "fortinet", "checkpoint", "cisco", "firepower", "fireeye",
		"ids", "ips", "firewall", "waf", "snort", "suricata", "zeek",
		// scanning
		"nessus", "qualys", "rapid7", "tenable", "nexpose", "openvas",
		"vulnerability scanner", "security scanner",
		// offensive
		"burp suite", "metasploit", "cobalt strike", "kali", "nmap",
		"bloodhound", "mimikatz", "hashcat", "john the ripper",
		// forensics
		"wireshark", "volatility", "autopsy", "encase", "ftk",
		"velociraptor", "sleuth kit", "yara", "osquery",
		// orchestration
		"siem", "soar", "phantom", "demisto", "xsoar",
		// frameworks
		"osint", "mitre att&ck", "nist", "cis controls",
		// cloud native
		"aqua security", "twistlock", "prisma cloud", "falco", "trivy",
		"kubernetes security", "container security",
	},
	IdentityConcepts: []string{
		"iam", "identity", "sso", "single sign-on", "saml", "oidc", "oauth",
		"scim", "ldap", "active directory", "mfa", "multi-factor",
		"pam", "privileged access", "iga", "identity governance",
		"access management", "identity management", "rbac", "role-based",
		"joiner mover leaver", "jml", "access certification", "access review",
		"provisioning", "deprovisioning", "lifecycle management",
		"user access", "access control", "authentication", "authorization",
		"directory services", "federation", "idp", "identity provider",
		"credential", "entitlement", "user lifecycle", "onboarding",
		"security clearance", "access request", "segregation of duties", "sod",
		"user provisioning", "access governance", "identity security",
		"zero trust", "least privilege", "password management", "secrets management",
		"service accounts", "privileged accounts", "access reviews",
		"identity verification", "user authentication", "identity protection",
	},
	SecurityConcepts: []string{
		"threat detection", "threat hunting", "threat intelligence", "threat modeling",
		"cyber threat", "apt", "advanced persistent threat", "attack surface", "kill chain",
		"security monitoring", "security operations", "soc", "security operations center",
		"incident response", "security incident", "security alerts", "security triage",
		"log analysis", "log monitoring", "event correlation", "anomaly detection",
		"indicator of compromise", "ioc", "false positive",
		"vulnerability management", "vulnerability assessment", "patch management",
		"vulnerability disclosure", "cve", "cvss",
		"penetration testing", "pen test", "pentest", "ethical hacking",
		"red team", "purple team", "adversary simulation", "social engineering",
		"offensive security", "bug bounty", "security research",
		"blue team", "defense in depth", "security architecture", "security engineering",
		"detection engineering", "security hardening",
		"malware analysis", "forensics", "digital forensics", "cyber forensics",
		"dfir", "memory forensics", "disk forensics", "reverse engineering",
		"endpoint security", "network security", "application security", "appsec",
		"mobile security", "iot security", "ot security", "scada security",
		"data security", "data protection", "data loss prevention", "dlp",
		"cyber attack", "data breach", "security breach", "ransomware", "phishing",
		"ddos", "sql injection", "xss", "cross-site scripting", "owasp",
		"encryption", "cryptography", "ssl", "tls", "certificates", "pki",
		"compliance", "audit", "risk assessment", "security assessment",
		"iso 27001", "sox", "pci dss", "hipaa", "gdpr", "nist csf", "cis controls",
		"grc", "governance risk compliance", "security policy", "security framework",
		"devsecops", "secops", "security automation", "security orchestration",
		"shift left", "secure sdlc", "security by design",
		"container security", "kubernetes security", "cloud native security",
		"infrastructure as code security", "supply chain security",
	},
	GoodTitles: []string{
		"analyst", "associate", "administrator", "engineer", "specialist",
		"consultant", "coordinator", "technician", "support", "developer",
		"operations", "ops", "implementation", "integration",
		"security analyst", "security engineer", "security specialist",
		"compliance analyst", "grc analyst", "audit analyst",
		"penetration tester", "pen tester", "ethical hacker", "red team",
		"forensics analyst", "forensic examiner", "malware analyst",
		"devsecops", "cloud security", "container security",
	},
	SecurityRoles: []string{
		"security analyst", "cybersecurity analyst", "information security",
		"it security", "security operations", "soc analyst", "security engineer",
		"grc", "compliance analyst", "audit", "risk analyst",
		"cloud security", "cloud security engineer", "cloud security analyst",
		"devsecops", "devops security", "infrastructure security",
		"penetration tester", "red team", "blue team", "purple team",
		"forensics analyst", "incident response", "dfir",
		"endpoint security", "data security analyst", "privacy analyst",
	},
	IdentityTerms: []string{
		"iam", "identity", "access management", "provisioning", "active directory",
	},
	EntryLevel: []string{
		"0-2", "1-3", "2-4", "3-5", "0-3", "1-4", "2-5", "0-5",
		"entry level", "entry-level", "junior", "associate level",
		"1 year", "2 years", "3 years", "4 years", "5 years",
		"new grad", "recent graduate", "early career",
	},
	Remote: []string{"remote", "work from home"},
}
