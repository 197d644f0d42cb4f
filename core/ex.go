/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

// SampleLexicon is an example lexicon that's useful to have around.
// It exercises most of the syntax.
const SampleLexicon = `// lchliebedich词库示例文件
// 这是注释行，以//、##或&&开头

// 基础问候
你好
你好！我是机器人助手。

早上好
早上好！今天是 %date%，祝你有美好的一天！

// 带参数的回复
测试参数(.*) (.*)
参数1: %括号1%
参数2: %括号2%
原始内容: %参数-1%

// 变量使用
测试变量
A:Hello
B:World
%A% %B%！

// 条件判断
测试条件
如果:%QQ%==123456
你是管理员！
else
你是普通用户。
如果尾

// 随机回复
随机测试
$随机数 replies$
#->var:replies
["回复1", "回复2", "回复3"]

// 图片回复
发图
$图片 https://q4.qlogo.cn/g?b=qq&nk=%QQ%&s=140$

// 表情回复
笑脸
$Emoy 13$

// 时间相关
现在几点
现在是 %datetime%
时间戳：%时间戳%

// 群聊专用
群信息
如果:$群聊消息$
群号：%群号%
群成员：%昵称%(%QQ%)
else
这不是群聊消息
如果尾

// 安静
闭嘴
如果:1
返回
如果尾
`

// SampleLexiconFilename is the conventional name for the sample.
const SampleLexiconFilename = "lchliebedich_example.txt"
