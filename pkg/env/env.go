package env

import "os"

// Prefix namespaces every variable the services read.
const Prefix = "ASSETTRACK_"

// Get returns ASSETTRACK_<key>, then the bare key, then fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(Prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
