package domain

import "fmt"

const maxDeploymentIDLength = 46

// DeploymentID identifies a deployment by the content hash of its manifest.
type DeploymentID string

// NewDeploymentID validates the raw hash and returns it as a DeploymentID.
// IDs are opaque beyond the character set check; the conventional form is a
// base58 content hash such as "Qmd5otMXB9TgAcXqGqUYdPh5TsCHlTNUVT6pYCCZFeSM1c".
func NewDeploymentID(raw string) (DeploymentID, error) {
	if raw == "" {
		return "", E(CodeInvalidArgument, "domain.NewDeploymentID", "deployment id is empty", nil)
	}
	if len(raw) > maxDeploymentIDLength {
		return "", E(CodeInvalidArgument, "domain.NewDeploymentID",
			fmt.Sprintf("deployment id %q exceeds %d characters", raw, maxDeploymentIDLength), nil)
	}
	for _, c := range raw {
		if !isAlphanumeric(c) {
			return "", E(CodeInvalidArgument, "domain.NewDeploymentID",
				fmt.Sprintf("deployment id %q contains non-alphanumeric character %q", raw, c), nil)
		}
	}
	return DeploymentID(raw), nil
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (id DeploymentID) String() string {
	return string(id)
}

// Link derives the content link of the deployment's manifest.
func (id DeploymentID) Link() string {
	return "/ipfs/" + string(id)
}
