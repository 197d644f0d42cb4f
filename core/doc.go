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

// Package core provides the core gear for lexicon-driven chat
// replies.  A lexicon is a plain-text file of rules.  Each rule has
// a trigger (a regular expression) and a body that says what to
// reply when a message matches the trigger.
//
// The primary type is Lexicon, and the primary method is Process.
// Process finds the first enabled rule whose trigger matches the
// message, binds the match's capture groups and parameters in a
// fresh variable store, picks a conditional branch (if the rule has
// any), and substitutes variables and function calls in the chosen
// text.
//
// Lexicon syntax, by example:
//
//	// greetings
//	你好(.*)
//	name:%昵称%
//	Hello, %name%! You said "%括号1%".
//
//	群信息
//	如果:$群聊消息$
//	群号：%群号%
//	else
//	这不是群聊消息
//	如果尾
//
// Rules are separated by blank lines.  Comment lines start with
// "//", "##", or "&&", and the nearest comment before a trigger
// names the rule's category.  A body line of the form "k:v" with a
// key of at most three characters (and no '%') defines a local
// variable.  "#->var:name" starts a multi-line variable that runs
// to the next blank line, comment, or "#->var:".
//
// In reply text, "%name%" is a variable and "$name arg ...$" is a
// function call (see package funcs).  Substitution is a single
// left-to-right pass, so a value that happens to contain '%' or
// '$' is never expanded again.
//
// Variables resolve from the invocation's variable store, then the
// message context (Props), then the built-in variables (see
// Builtin).  A variable store belongs to a single invocation, so
// concurrent calls to Process never see each other's variables.
//
// A Lexicon is read-only once it's in use.  To change rules, build a
// new Lexicon and publish it with UpdatableLexicon.Set.
package core
