// Package config 提供 BrandForge 的配置管理功能。
//
// 配置来源依次为默认值、YAML 文件与 BRANDFORGE_ 前缀的环境变量。
// 文本与媒体 Provider 各自独立选择，启动后只读，通过依赖注入传递。
package config
