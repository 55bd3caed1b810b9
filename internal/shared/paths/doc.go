// Package paths defines where the launcher keeps its data.
//
// # Directory Structure
//
//	<data dir>/                   (os.UserConfigDir()/bonchon-launcher)
//	  ├── installed-apps.json     (installation ledger)
//	  ├── settings.json           (user preferences)
//	  └── catalog-cache.json      (last-known-good catalog)
//	<download dir>/               (~/Downloads/Bonchon-Apps)
//	  └── <app id>/               (install root, removed on uninstall)
//
// # Usage
//
//	layout := paths.NewLayout(cfg.Storage.DataDir, cfg.Storage.DownloadDir)
//	dir, err := paths.InstallDir(layout.DownloadDir, "fivem-launcher")
package paths
