// Package types contains shared types used across the hardware validation runner
package types

// DescriptorFile is the name of the file that marks a directory as a test case module
const DescriptorFile = "testcase.yaml"

// TestCaseDescriptor describes a discovered test case module
type TestCaseDescriptor struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Suite  string `yaml:"suite,omitempty"`
	Config string `yaml:"config,omitempty"` // Optional INI file relative to Dir

	Dir     string `yaml:"-"` // Directory the descriptor was found in
	LoadErr error  `yaml:"-"` // Set when the descriptor itself could not be read
}

// GetName returns a human readable name for the test case
func (d TestCaseDescriptor) GetName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
