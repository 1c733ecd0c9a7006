package herd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKinds(t *testing.T) {
	assert.Nil(t, ParseKinds(""))
	assert.Equal(t, []int{9734}, ParseKinds("9734"))
	assert.Equal(t, []int{9734, 6, 7}, ParseKinds("9734,6,7"))
	assert.Equal(t, []int{6, 7}, ParseKinds(" 6 , 7 "))
	assert.Equal(t, []int{6}, ParseKinds("6,junk,"))
}

func TestKindsToString(t *testing.T) {
	assert.Equal(t, "", KindsToString(nil))
	assert.Equal(t, "9734,6", KindsToString([]int{9734, 6}))
}

func TestMergeKinds(t *testing.T) {
	assert.Equal(t, []int{9734, 6}, MergeKinds([]int{9734}, []int{6, 9734}))
	assert.Equal(t, []int{6}, MergeKinds(nil, []int{6, 6}))
	assert.Empty(t, MergeKinds(nil, nil))
}
