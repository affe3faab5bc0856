package patterns

// Built-in threat intelligence. Real deployments extend these with feeds.
var (
	maliciousDomains = []string{
		"malware-distribution.com",
		"virus-download.net",
		"trojan-host.org",
		"ransomware-payload.biz",
		"exploit-kit.ru",
		"drive-by-download.info",
	}

	phishingDomains = []string{
		"paypa1-secure.com",
		"secure-appleid-verify.com",
		"amaz0n-account.net",
		"g00gle-login.com",
		"microsoft-support-alert.com",
		"netflix-billing-update.com",
	}

	dangerousExtensions = []string{
		".exe", ".scr", ".bat", ".cmd", ".com", ".pif",
		".vbs", ".vbe", ".js", ".jse", ".jar", ".msi",
		".ps1", ".psm1", ".reg", ".hta", ".dll", ".cpl",
		".wsf", ".lnk", ".apk", ".dmg", ".deb", ".rpm",
	}

	// sha256 digests
	malwareHashes = []string{
		// EICAR antivirus test file
		"275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f",
		// EICAR test file inside a zip
		"2546dcffc5ad854d4ddc64fbf056871cd5a00f2471cb7a5bfd4ac23b6e9eedad",
	}

	// Reference, documentation and code hosting sites
	trustedDomains = []string{
		"github.com",
		"gitlab.com",
		"stackoverflow.com",
		"developer.mozilla.org",
		"wikipedia.org",
		"go.dev",
		"pkg.go.dev",
		"docs.python.org",
	}

	// Host prefixes used by ad, tracking and analytics infrastructure
	trackerPrefixes = []string{
		"ads.",
		"ad.",
		"adserver.",
		"track.",
		"tracker.",
		"tracking.",
		"analytics.",
		"metrics.",
		"pixel.",
	}

	phishingBrands = []string{
		"paypal", "apple", "amazon", "google", "microsoft",
		"facebook", "netflix", "instagram", "bank",
	}

	miningLibraries = []string{
		"coinhive", "coin-hive", "cryptonight", "coinimp",
		"crypto-loot", "cryptoloot", "jsecoin", "webminepool",
		"minero.cc", "deepminer",
	}
)
