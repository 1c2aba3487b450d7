package google

import (
	"google.golang.org/api/option"
)

// ClientOption returns an option.ClientOption for use with Google API service
// constructors from a service account JSON key file.
func ClientOption(credentialsFile string) option.ClientOption {
	return option.WithCredentialsFile(credentialsFile)
}
