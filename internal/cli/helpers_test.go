package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: bubbling
description: a leaf write notifies its ancestors
run_id: run-1
state:
  user: {name: Ann, age: 30}
  items: [1, 2, 3]
observers:
  - {kind: notify, path: user}
  - {kind: notify, path: user.name}
  - {kind: notify, path: user.age}
steps:
  - {set: user.name, value: Bob}
  - {flush: true}
assertions:
  - {type: notified, path: user.name, count: 1}
  - {type: notified, path: user, count: 1}
  - {type: not_notified, path: user.age}
  - {type: final_value, path: user.name, expect: Bob}
`

const failingScenario = `
name: wrong-expectation
description: expects a notification that never happens
state:
  user: {name: Ann, age: 30}
observers:
  - {kind: notify, path: user.age}
steps:
  - {set: user.name, value: Bob}
assertions:
  - {type: notified, path: user.age}
`

const canceledScenario = `
name: guarded
description: a change observer vetoes writes to user.name
run_id: run-2
state:
  user: {name: Ann}
observers:
  - {kind: change, path: user.name, cancel: true}
  - {kind: notify, path: user.name}
steps:
  - {set: user.name, value: Bob}
  - {set: user.role, value: admin}
assertions:
  - {type: canceled, path: user.name}
  - {type: not_notified, path: user.name}
  - {type: final_value, path: user.name, expect: Ann}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
