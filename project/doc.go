// 版权所有 2024 BrandForge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package project 维护品牌项目的会话状态。

项目是聚合根：品牌简报、各阶段实时数据、参考图、只追加的历史快照与
版本指针。所有变更都以 [Event] 表达，由纯函数 [Apply] 计算新状态，
输入项目保持不变。

[Store] 是进程内存储：

  - Dispatch 串行应用一批事件，任一失败整批回滚
  - Acquire 提供阶段级互斥，同一阶段的第二个操作返回 [ErrStageBusy]
  - Watch 推送最新状态，慢消费者只会丢失中间状态
  - Sweep / Run 回收空闲超过 TTL 的项目
*/
package project
