package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_Registered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["init"])
	assert.True(t, names["assign-admin"])

	secret := initCmd.Flags().Lookup("secret")
	require.NotNil(t, secret)
	assert.Equal(t, []string{"true"}, secret.Annotations[cobra.BashCompOneRequiredFlag])
}

// 参数校验在连接数据库之前完成
func TestCommands_ArgValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"assign-admin 缺少用户名", []string{"assign-admin"}},
		{"assign-admin 多余参数", []string{"assign-admin", "alice", "bob"}},
		{"init 不接受位置参数", []string{"init", "extra", "--secret", "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tt.args)
			t.Cleanup(func() { rootCmd.SetArgs(nil) })

			err := rootCmd.Execute()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
