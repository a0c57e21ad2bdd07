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

package exception

// request validation
const (
	EmptyParameter           = "8"
	EmptyParameterMsg        = "Parameter $param should not be empty"
	BadRequestBody           = "10"
	BadRequestBodyMsg        = "Failed to decode inspection request"
	InvalidQueryParam        = "12"
	InvalidQueryParamMsg     = "Query parameter $param has improper value '$value'"
	RequiredParamsMissing    = "15"
	RequiredParamsMissingMsg = "Required parameters are missing: $params"
	InvalidApiKey            = "83"
	InvalidApiKeyMsg         = "Header $header does not carry a valid api key"
)

// inspection session control
const (
	UnableToStartInspection    = "20000"
	UnableToStartInspectionMsg = "unable to start inspection"
	UnableToStopInspection     = "20001"
	UnableToStopInspectionMsg  = "unable to stop inspection"
	UnableToListInterfaces     = "20002"
	UnableToListInterfacesMsg  = "unable to list network interfaces"
)

// reassembled datagram queries
const (
	DatagramNotFound            = "20010"
	DatagramNotFoundMsg         = "datagram $key not found"
	DatagramStoreUnavailable    = "20011"
	DatagramStoreUnavailableMsg = "datagram store is not configured"
)
