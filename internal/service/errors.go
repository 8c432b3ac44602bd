// Package service 业务逻辑层
package service

import (
	"errors"
	"fmt"

	"github.com/pu-ac-cn/admin-console/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes bcrypt 可处理的最大密码长度
const maxPasswordBytes = 72

// 错误类别，具体错误通过 errors.Is 归类
var (
	ErrAuthenticationRequired = errors.New("请先登录")
	ErrPermissionDenied       = errors.New("没有权限")
	ErrDuplicateName          = errors.New("名称已存在")
	ErrInvalidInput           = errors.New("参数无效")
	ErrNotFound               = errors.New("记录不存在")
	ErrSelfActionForbidden    = errors.New("不能对自己执行该操作")
)

// kindError 带类别的错误，Error() 只返回自身消息
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrScopeViolation       = newError(ErrPermissionDenied, "您只能管理普通用户")
	ErrSuperAdminAssignment = newError(ErrPermissionDenied, "只有超级管理员可以分配超级管理员组")
	ErrInvalidCredentials   = newError(ErrAuthenticationRequired, "用户名或密码错误")
	ErrUserDisabled         = newError(ErrAuthenticationRequired, "用户已被禁用")

	ErrUsernameExists  = newError(ErrDuplicateName, "用户名已存在")
	ErrGroupNameExists = newError(ErrDuplicateName, "用户组名已存在")

	ErrUsernameEmpty    = newError(ErrInvalidInput, "用户名不能为空")
	ErrPasswordEmpty    = newError(ErrInvalidInput, "创建用户时密码不能为空")
	ErrNewPasswordEmpty = newError(ErrInvalidInput, "新密码不能为空")
	ErrPasswordMismatch = newError(ErrInvalidInput, "两次输入的密码不一致")
	ErrPasswordTooLong  = newError(ErrInvalidInput, "密码长度不能超过 72 字节")
	ErrGroupNameEmpty   = newError(ErrInvalidInput, "用户组名不能为空")

	ErrUserNotFound  = newError(ErrNotFound, "用户不存在")
	ErrGroupNotFound = newError(ErrNotFound, "用户组不存在")

	ErrSelfDelete      = newError(ErrSelfActionForbidden, "不能删除当前登录用户")
	ErrSelfGroupChange = newError(ErrSelfActionForbidden, "不能修改自己的用户组")
)

// translate 将仓库层错误转换为业务错误，其余错误原样返回
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrGroupNotFound):
		return ErrGroupNotFound
	case errors.Is(err, repository.ErrUserUsernameExists):
		return ErrUsernameExists
	case errors.Is(err, repository.ErrGroupNameExists):
		return ErrGroupNameExists
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return ErrPasswordTooLong
	default:
		return err
	}
}

// wrap 为非业务错误补充上下文
func wrap(err error, action string) error {
	err = translate(err)
	if err == nil || isKnown(err) {
		return err
	}
	return fmt.Errorf("%s: %w", action, err)
}

// isKnown 判断错误是否属于已定义的错误类别
func isKnown(err error) bool {
	for _, kind := range []error{
		ErrAuthenticationRequired,
		ErrPermissionDenied,
		ErrDuplicateName,
		ErrInvalidInput,
		ErrNotFound,
		ErrSelfActionForbidden,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// checkPassword 校验密码长度，空密码由调用方按场景处理
func checkPassword(password string) error {
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
