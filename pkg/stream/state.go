/*
 * Copyright 2025 ESPDeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package stream

// State represents the lifecycle of the streaming channel.
type State int

const (
	// StateIdle - the channel has not started or has been torn down
	StateIdle State = iota
	// StateConnecting - a connection attempt is in flight
	StateConnecting
	// StateOpen - the channel is established and frames are flowing
	StateOpen
	// StateClosed - the connection dropped and no retry is scheduled yet
	StateClosed
	// StateReconnecting - a retry is scheduled and the channel is waiting it out
	StateReconnecting
	// StateGivenUp - the retry budget is spent, the channel stays down
	StateGivenUp
)

// String returns a string representation of the channel state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	case StateGivenUp:
		return "given up"
	default:
		return "unknown"
	}
}
