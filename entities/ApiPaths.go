// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package entities

// HTTP control API paths
const (
	InspectionStartPath  = "/api/v1/inspection/start"
	InspectionStopPath   = "/api/v1/inspection/stop"
	InspectionStatusPath = "/api/v1/inspection/status"
	InspectionReportPath = "/api/v1/inspection/report"
	InterfaceListPath    = "/api/v1/interfaces"
	AddressMapPath       = "/api/v1/addresses"
	DatagramListPath     = "/api/v1/datagrams"
	DatagramPath         = "/api/v1/datagrams/{key}"
	DatagramPayloadPath  = "/api/v1/datagrams/{key}/payload"
	DatagramKeyVar       = "key"
	DatagramLimitParam   = "limit"
	DatagramSessionParam = "session"
	LivenessProbePath    = "/live"
	ReadinessProbePath   = "/ready"
	StartupProbePath     = "/startup"
)
