package project

import "errors"

var (
	// ErrNotFound 项目不存在
	ErrNotFound = errors.New("project not found")

	// ErrStageBusy 阶段已有进行中的操作
	ErrStageBusy = errors.New("stage busy")

	// ErrVersionOutOfRange 历史版本下标越界
	ErrVersionOutOfRange = errors.New("version index out of range")

	// ErrUnknownStage 未知阶段
	ErrUnknownStage = errors.New("unknown stage")

	// ErrNoMessages 阶段没有可替换的消息
	ErrNoMessages = errors.New("stage has no messages")

	// ErrReferenceNotAllowed 阶段不接受参考图
	ErrReferenceNotAllowed = errors.New("stage does not accept a reference image")
)
