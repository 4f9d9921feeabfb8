// Package config loads the optional settings file shared by every rcbatch command.
//
//	            +-------------+
//	            |   Config    |
//	            | (defaults)  |
//	            +------+------+
//	                   |
//	     +-------------+-------------+
//	     |             |             |
//	+----+----+   +----+----+   +----+----+
//	|  YAML   |   |   HCL   |   |  JSON   |
//	| Parser  |   | Parser  |   | Parser  |
//	+---------+   +---------+   +---------+
//
// 🎯 Purpose:
//   - Picks a parser by file extension from a small registry
//   - Fills defaults for the tool binary, ledger files and per-operation parameters
//   - Validates operation names and leaf patterns before any item is touched
//
// 🔄 Flow:
//  1. Read the file (a missing default file means Default())
//  2. Decode with the matching parser, unknown keys rejected
//  3. Expand environment variables in paths
//  4. Apply defaults, then Validate
//
// 📝 Example (.rcbatch.yaml):
//
//	binary: /usr/local/bin/rclone
//	failed_files: $HOME/rcbatch/failed_files.txt
//	parameters:
//	  copy: --ignore-errors --transfers 8
//	  delete: --dry-run
//	leaf_patterns:
//	  - "**/*.iso"
//	verify: true
//
// The same in HCL:
//
//	binary       = "/usr/local/bin/rclone"
//	failed_files = "${env.HOME}/rcbatch/failed_files.txt"
//	parameters = {
//	  copy   = "--ignore-errors --transfers 8"
//	  delete = "--dry-run"
//	}
//	leaf_patterns = ["**/*.iso"]
//	verify        = true
//
// Command line flags always win over the file.
package config
