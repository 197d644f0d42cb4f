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

// Package lexicon answers chat messages with rules from lexicon files.
//
// A lexicon is a plain-text file of rules.  Each rule is a trigger
// (a regular expression, or literal text when it isn't one) followed
// by response lines, variable definitions, conditions, and function
// calls.  The parser and engine are in package 'core', the
// directory of enabled lexicons is package 'library', and transports
// are in 'sio'.  The command-line tool is in `cmd/lexd`.
package lexicon
