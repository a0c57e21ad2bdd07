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

package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/exception"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/capture"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Service
// an interface to controller
type Service interface {
	OnStart(w http.ResponseWriter, r *http.Request)
	OnStop(w http.ResponseWriter, r *http.Request)
	OnInspectionStatus(w http.ResponseWriter, r *http.Request)
	OnReport(w http.ResponseWriter, r *http.Request)
	OnInterfaces(w http.ResponseWriter, r *http.Request)
	OnAddressMap(w http.ResponseWriter, r *http.Request)
	OnDatagrams(w http.ResponseWriter, r *http.Request)
	OnDatagram(w http.ResponseWriter, r *http.Request)
	OnDatagramPayload(w http.ResponseWriter, r *http.Request)
	OnStatus(w http.ResponseWriter, r *http.Request)
	Close()
}

type webService struct {
	entities.InspectorControllerConfig
	pkt        capture.Capture                 // local inspection service
	defaults   entities.InspectorServiceConfig // applied to every request
	stores     capture.Sinks                   // datagram queries
	lock       sync.Mutex
	inspection map[string]entities.InspectionInstanceConfig
	chCap      chan string
}

// constants
const (
	HttpContentType       = "Content-Type"
	invalidApiKey         = "API key not match"
	emptyApiKey           = "empty API key not allowed in production mode"
	emptyInspectionId     = "empty inspection id"
	requestBodyDeferError = "unable to close request body: %v"
	metadataFileSuffix    = "_metadata.json"
)

// NewWebService
// creates the controller, stores are optional
func NewWebService(pkt capture.Capture, defaults entities.InspectorServiceConfig, stores capture.Sinks, config entities.InspectorControllerConfig) Service {
	ws := &webService{
		InspectorControllerConfig: config,
		pkt:                       pkt,
		defaults:                  defaults,
		stores:                    stores,
		inspection:                make(map[string]entities.InspectionInstanceConfig),
		chCap:                     make(chan string),
	}
	utils.SafeAsync(func() {
		for {
			rs := <-ws.chCap
			if rs == view.EmptyString {
				log.Info("webservice inspection status channel completed")
				break
			}
			ws.lock.Lock()
			if _, found := ws.inspection[rs]; !found {
				log.Debugf("webservice: no inspection found for %s", rs)
			} else {
				delete(ws.inspection, rs)
			}
			ws.lock.Unlock()
		}
	})
	return ws
}

func RespondWithJson(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set(HttpContentType, "application/json")
	w.WriteHeader(code)
	write, err := w.Write(response)
	if err != nil {
		log.Debugf("%d response bytes written with error: %v", write, err)
	}
}

func RespondWithCustomError(w http.ResponseWriter, err *exception.CustomError) {
	log.Debugf("Request failed. Code = %d. Message = %s. Params: %v. Debug: %s", err.Status, err.Message, err.Params, err.Debug)
	RespondWithJson(w, err.Status, err)
}

func badRequestBody(w http.ResponseWriter, err error) {
	RespondWithCustomError(w, &exception.CustomError{
		Status:  http.StatusBadRequest,
		Code:    exception.BadRequestBody,
		Message: exception.BadRequestBodyMsg,
		Debug:   err.Error(),
	})
}

// OnStart
// try to start an inspection session
func (ws *webService) OnStart(w http.ResponseWriter, r *http.Request) {
	body, err := ws.checkAndGetBody(w, r)
	if err != nil {
		return
	}
	var rb view.InspectionRequest
	if err = json.Unmarshal(body, &rb); err != nil {
		badRequestBody(w, err)
		return
	}
	rib, err := entities.MakeInspectionInstanceConfig(rb, ws.defaults)
	if err != nil {
		badRequestBody(w, err)
		return
	}
	if rib.Status == entities.VrIdGenerated {
		metaData, err := json.Marshal(entities.ConvertToInspectionRequest(rib))
		if err != nil {
			log.Errorf("unable to marshal inspection request for metadata. Error: %v", err)
		} else if err = ws.pkt.SaveInspectionMetadata(rib.Id+metadataFileSuffix, metaData); err != nil {
			log.Errorf("unable to save inspection request metadata. Error: %v", err)
		}
	}
	ws.lock.Lock()
	for ck, running := range ws.inspection {
		if running.Fingerprint == rib.Fingerprint || entities.InspectionConfigurationEqual(running, rib) {
			log.Warnf("the same configuration is running under id %s", ck)
		}
	}
	ws.lock.Unlock()
	err = ws.pkt.StartCapture(rib, ws.chCap)
	if err == nil {
		result := ws.pkt.GetStatus()
		switch result.Status {
		case view.RequestStatusRunning, view.RequestStatusStarting:
			ws.lock.Lock()
			ws.inspection[rib.Id] = rib
			ws.lock.Unlock()
			RespondWithJson(w, http.StatusAccepted, result)
		case view.RequestStatusCompleted:
			RespondWithJson(w, http.StatusAccepted, result) // a short capture file
		default:
			RespondWithJson(w, http.StatusInternalServerError, result)
		}
		return
	}
	RespondWithCustomError(w, &exception.CustomError{
		Status:  http.StatusServiceUnavailable,
		Code:    exception.UnableToStartInspection,
		Message: exception.UnableToStartInspectionMsg,
		Debug:   err.Error(),
	})
}

// OnStop
// try to stop an inspection session
func (ws *webService) OnStop(w http.ResponseWriter, r *http.Request) {
	body, err := ws.checkAndGetBody(w, r)
	if err != nil {
		return
	}
	var rb view.InspectionRequest
	if err = json.Unmarshal(body, &rb); err != nil {
		badRequestBody(w, err)
		return
	}
	if rb.Id == view.EmptyString {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.RequiredParamsMissing,
			Message: exception.RequiredParamsMissingMsg,
			Params:  map[string]interface{}{"params": "id"},
			Debug:   emptyInspectionId,
		})
		return
	}
	result, err := ws.pkt.StopCapture(rb.Id)
	if err == nil {
		switch result.Status {
		case view.RequestStatusNone: // nothing to stop
			RespondWithJson(w, http.StatusNotFound, result)
		case view.RequestStatusStopping, view.RequestStatusStopped, view.RequestStatusCompleted:
			RespondWithJson(w, http.StatusAccepted, result) // good result
		default:
			RespondWithJson(w, http.StatusInternalServerError, result) // bad result
		}
		return
	}
	RespondWithCustomError(w, &exception.CustomError{
		Status:  http.StatusServiceUnavailable,
		Code:    exception.UnableToStopInspection,
		Message: exception.UnableToStopInspectionMsg,
		Debug:   err.Error(),
	})
}

// OnInspectionStatus
// reports the current session state
func (ws *webService) OnInspectionStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := ws.checkAndGetBody(w, r); err != nil {
		return
	}
	RespondWithJson(w, http.StatusOK, ws.pkt.GetStatus())
}

// OnReport
// reports counters of the current or the last session
func (ws *webService) OnReport(w http.ResponseWriter, r *http.Request) {
	if _, err := ws.checkAndGetBody(w, r); err != nil {
		return
	}
	RespondWithJson(w, http.StatusOK, ws.pkt.GetReport())
}

// OnInterfaces
// returns list of network interface names or reports error
func (ws *webService) OnInterfaces(w http.ResponseWriter, r *http.Request) {
	if _, err := ws.checkAndGetBody(w, r); err != nil {
		return
	}
	interfaces, err := capture.CachedLocalInterfaces()
	if err != nil {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusServiceUnavailable,
			Code:    exception.UnableToListInterfaces,
			Message: exception.UnableToListInterfacesMsg,
			Debug:   err.Error(),
		})
		return
	}
	RespondWithJson(w, http.StatusOK, interfaces)
}

// OnAddressMap
// returns map of addresses assigned on network interfaces or reports error
func (ws *webService) OnAddressMap(w http.ResponseWriter, r *http.Request) {
	if _, err := ws.checkAndGetBody(w, r); err != nil {
		return
	}
	addressMap, err := capture.LocalAddrMap()
	if err != nil {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusServiceUnavailable,
			Code:    exception.UnableToListInterfaces,
			Message: exception.UnableToListInterfacesMsg,
			Debug:   err.Error(),
		})
		return
	}
	RespondWithJson(w, http.StatusOK, addressMap)
}

// OnDatagrams
// lists recent datagrams, or datagrams of a logged session when the session parameter is set
func (ws *webService) OnDatagrams(w http.ResponseWriter, r *http.Request) {
	if _, err := ws.checkAndGetBody(w, r); err != nil {
		return
	}
	limit := view.DefaultRecentListLimit
	if limitStr := r.URL.Query().Get(entities.DatagramLimitParam); limitStr != view.EmptyString {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			RespondWithCustomError(w, &exception.CustomError{
				Status:  http.StatusBadRequest,
				Code:    exception.InvalidQueryParam,
				Message: exception.InvalidQueryParamMsg,
				Params:  map[string]interface{}{"param": entities.DatagramLimitParam, "value": limitStr},
			})
			return
		}
		limit = n
	}
	sessionId := r.URL.Query().Get(entities.DatagramSessionParam)
	if sessionId != view.EmptyString {
		if ws.stores.Log == nil {
			storeUnavailable(w, "datagram log")
			return
		}
		list, err := ws.stores.Log.ListDatagrams(sessionId, limit)
		if err != nil {
			RespondWithCustomError(w, &exception.CustomError{
				Status:  http.StatusInternalServerError,
				Code:    exception.DatagramStoreUnavailable,
				Message: exception.DatagramStoreUnavailableMsg,
				Debug:   err.Error(),
			})
			return
		}
		if list == nil {
			list = []view.DatagramView{}
		}
		RespondWithJson(w, http.StatusOK, list)
		return
	}
	if ws.stores.Recent == nil {
		storeUnavailable(w, "recent cache")
		return
	}
	RespondWithJson(w, http.StatusOK, ws.stores.Recent.List(limit))
}

// OnDatagram
// a recent datagram by key
func (ws *webService) OnDatagram(w http.ResponseWriter, r *http.Request) {
	if _, err := ws.checkAndGetBody(w, r); err != nil {
		return
	}
	if ws.stores.Recent == nil {
		storeUnavailable(w, "recent cache")
		return
	}
	key := mux.Vars(r)[entities.DatagramKeyVar]
	if v, ok := ws.stores.Recent.Get(key); ok {
		RespondWithJson(w, http.StatusOK, v)
		return
	}
	datagramNotFound(w, key)
}

// OnDatagramPayload
// archived datagram bytes by key
func (ws *webService) OnDatagramPayload(w http.ResponseWriter, r *http.Request) {
	if _, err := ws.checkAndGetBody(w, r); err != nil {
		return
	}
	if ws.stores.Archive == nil {
		storeUnavailable(w, "archive")
		return
	}
	key := mux.Vars(r)[entities.DatagramKeyVar]
	payload, found, err := ws.stores.Archive.GetPayload(key)
	if err != nil {
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusInternalServerError,
			Code:    exception.DatagramStoreUnavailable,
			Message: exception.DatagramStoreUnavailableMsg,
			Debug:   err.Error(),
		})
		return
	}
	if !found {
		datagramNotFound(w, key)
		return
	}
	RespondWithJson(w, http.StatusOK, view.DatagramPayload{Key: key, Payload: payload})
}

func storeUnavailable(w http.ResponseWriter, name string) {
	RespondWithCustomError(w, &exception.CustomError{
		Status:  http.StatusServiceUnavailable,
		Code:    exception.DatagramStoreUnavailable,
		Message: exception.DatagramStoreUnavailableMsg,
		Debug:   name + " is off",
	})
}

func datagramNotFound(w http.ResponseWriter, key string) {
	RespondWithCustomError(w, &exception.CustomError{
		Status:  http.StatusNotFound,
		Code:    exception.DatagramNotFound,
		Message: exception.DatagramNotFoundMsg,
		Params:  map[string]interface{}{"key": key},
	})
}

// OnStatus
// reports status on TTL requests
func (ws *webService) OnStatus(w http.ResponseWriter, _ *http.Request) {
	RespondWithJson(w, http.StatusOK, "") // always respond OK to calm the watchdogs
}

func (ws *webService) Close() {
	select {
	case ws.chCap <- view.EmptyString:
		break // command accepted
	case <-time.After(time.Second * 5):
		log.Warnf("webservice: timeout sending stop command") // channel writing timeout - force to stop anyhow
	}
}

// checkAndGetBody
// checks API key and reads body contents
func (ws *webService) checkAndGetBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if ws.APIkey != view.EmptyString {
		apiKeyHeader := r.Header.Get(view.ApiKeyHeader)
		if apiKeyHeader != ws.APIkey {
			RespondWithCustomError(w, &exception.CustomError{
				Status:  http.StatusUnauthorized,
				Code:    exception.InvalidApiKey,
				Message: exception.InvalidApiKeyMsg,
				Params:  map[string]interface{}{"header": view.ApiKeyHeader},
				Debug:   invalidApiKey,
			})
			return nil, errors.New(invalidApiKey)
		}
	} else {
		if ws.ProductionMode {
			RespondWithCustomError(w, &exception.CustomError{
				Status:  http.StatusUnauthorized,
				Code:    exception.EmptyParameter,
				Message: exception.EmptyParameterMsg,
				Params:  map[string]interface{}{"param": view.ApiKeyHeader},
				Debug:   emptyApiKey,
			})
			return nil, errors.New(emptyApiKey)
		}
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Debugf(requestBodyDeferError, err)
		}
	}(r.Body)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		badRequestBody(w, err)
		return nil, err
	}
	return body, nil
}

// NewRouter
// registers the control API on a gorilla router
func NewRouter(ws Service, productionMode bool) *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	r.UseEncodedPath()
	r.HandleFunc(entities.InspectionStartPath, ws.OnStart).Methods(http.MethodPost)
	r.HandleFunc(entities.InspectionStopPath, ws.OnStop).Methods(http.MethodPost)
	r.HandleFunc(entities.InspectionStatusPath, ws.OnInspectionStatus).Methods(http.MethodGet)
	r.HandleFunc(entities.InspectionReportPath, ws.OnReport).Methods(http.MethodGet)
	r.HandleFunc(entities.InterfaceListPath, ws.OnInterfaces).Methods(http.MethodGet)
	r.HandleFunc(entities.DatagramListPath, ws.OnDatagrams).Methods(http.MethodGet)
	r.HandleFunc(entities.DatagramPayloadPath, ws.OnDatagramPayload).Methods(http.MethodGet)
	r.HandleFunc(entities.DatagramPath, ws.OnDatagram).Methods(http.MethodGet)
	if !productionMode {
		r.HandleFunc(entities.AddressMapPath, ws.OnAddressMap).Methods(http.MethodGet)
	}
	// set TTL reactions
	r.HandleFunc(entities.LivenessProbePath, ws.OnStatus).Methods(http.MethodGet)
	r.HandleFunc(entities.ReadinessProbePath, ws.OnStatus).Methods(http.MethodGet)
	r.HandleFunc(entities.StartupProbePath, ws.OnStatus).Methods(http.MethodGet)
	return r
}
