package catalog

import "github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"

// Fallback is the built-in catalog used when neither the remote document nor
// the cache can be read. Download URLs are filled in by Sync.
func Fallback() []types.CatalogEntry {
	return []types.CatalogEntry{
		{
			ID:          "fivem-launcher",
			Name:        "FiveM Launcher",
			Description: "Custom FiveM launcher with quick Pure Mode selection",
			Icon:        "assets/icons/logo.png",
			Version:     "1.0.0",
			GithubRepo:  "Smallzoamz/FiveMLauncher",
			Size:        "45 MB",
			Category:    "Gaming",
			BgColor:     "linear-gradient(135deg, #ff6b35 0%, #f7931e 50%, #ff4500 100%)",
		},
		{
			ID:          "medic-recruitment",
			Name:        "Medic OP Systems",
			Description: "Real-time OP management and medic status tracking",
			Icon:        "assets/icons/logo.png",
			Version:     "1.0.0",
			GithubRepo:  "Smallzoamz/medicop",
			Size:        "82 MB",
			Category:    "Management",
			BgColor:     "linear-gradient(135deg, #00d4ff 0%, #0099cc 50%, #006699 100%)",
		},
	}
}
