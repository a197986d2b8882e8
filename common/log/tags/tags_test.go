package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFields(t *testing.T) {
	lt := LogTags{JobID: "12", TaskID: "app-12-x", Tag: "app"}
	f := lt.Fields()
	assert.Equal(t, "12", f["jobID"])
	assert.Equal(t, "app-12-x", f["taskID"])
	assert.Equal(t, "app", f["tag"])
}
