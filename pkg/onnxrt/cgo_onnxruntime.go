//go:build onnxruntime

// This file implements [Session] and [Env] against the real ONNX
// Runtime C API via CGo. It only builds with the "onnxruntime" build
// tag, since it requires libonnxruntime to be present at link time —
// most of this module's tests run against [MockEnv] instead.
package onnxrt

/*
#include <onnxruntime_c_api.h>
#include <stdlib.h>
#include <string.h>

static const OrtApi* ort_api() {
    return OrtGetApiBase()->GetApi(ORT_API_VERSION);
}

static OrtStatus* ort_create_env(const OrtApi* api, const char* name, OrtEnv** out) {
    return api->CreateEnv(ORT_LOGGING_LEVEL_WARNING, name, out);
}

static OrtStatus* ort_create_session_options(const OrtApi* api, int num_threads, OrtSessionOptions** out) {
    OrtStatus* status = api->CreateSessionOptions(out);
    if (status) return status;
    if (num_threads > 0) {
        status = api->SetIntraOpNumThreads(*out, num_threads);
    }
    return status;
}

static OrtStatus* ort_create_session_from_memory(const OrtApi* api, OrtEnv* env,
    const void* model_data, size_t model_data_len, OrtSessionOptions* opts, OrtSession** out) {
    return api->CreateSessionFromArray(env, model_data, model_data_len, opts, out);
}

static OrtStatus* ort_create_cpu_memory_info(const OrtApi* api, OrtMemoryInfo** out) {
    return api->CreateCpuMemoryInfo(OrtArenaAllocator, OrtMemTypeDefault, out);
}

static OrtStatus* ort_create_tensor(const OrtApi* api, OrtMemoryInfo* info,
    void* data, size_t data_bytes, int64_t* shape, size_t shape_len,
    ONNXTensorElementDataType dtype, OrtValue** out) {
    return api->CreateTensorWithDataAsOrtValue(info, data, data_bytes, shape, shape_len, dtype, out);
}

static OrtStatus* ort_run(const OrtApi* api, OrtSession* session,
    const char** input_names, const OrtValue* const* inputs, size_t num_inputs,
    const char** output_names, size_t num_outputs, OrtValue** outputs) {
    return api->Run(session, NULL, input_names, inputs, num_inputs,
        output_names, num_outputs, outputs);
}

static OrtStatus* ort_get_tensor_data(const OrtApi* api, OrtValue* value, void** out) {
    return api->GetTensorMutableData(value, out);
}

static OrtStatus* ort_get_tensor_shape(const OrtApi* api, OrtValue* value, int64_t** shape, size_t* ndim) {
    OrtTensorTypeAndShapeInfo* info;
    OrtStatus* status = api->GetTensorTypeAndShape(value, &info);
    if (status) return status;
    status = api->GetDimensionsCount(info, ndim);
    if (status) { api->ReleaseTensorTypeAndShapeInfo(info); return status; }
    *shape = (int64_t*)malloc(sizeof(int64_t) * (*ndim));
    status = api->GetDimensions(info, *shape, *ndim);
    api->ReleaseTensorTypeAndShapeInfo(info);
    return status;
}

static OrtStatus* ort_get_tensor_elem_type(const OrtApi* api, OrtValue* value, ONNXTensorElementDataType* out) {
    OrtTensorTypeAndShapeInfo* info;
    OrtStatus* status = api->GetTensorTypeAndShape(value, &info);
    if (status) return status;
    status = api->GetTensorElementType(info, out);
    api->ReleaseTensorTypeAndShapeInfo(info);
    return status;
}

static OrtStatus* ort_session_io_count(const OrtApi* api, OrtSession* s, int is_input, size_t* count) {
    if (is_input) return api->SessionGetInputCount(s, count);
    return api->SessionGetOutputCount(s, count);
}

static OrtStatus* ort_session_io_name(const OrtApi* api, OrtSession* s, size_t idx, int is_input,
    OrtAllocator* alloc, char** out) {
    if (is_input) return api->SessionGetInputName(s, idx, alloc, out);
    return api->SessionGetOutputName(s, idx, alloc, out);
}

static OrtStatus* ort_session_io_type_info(const OrtApi* api, OrtSession* s, size_t idx, int is_input,
    OrtTypeInfo** out) {
    if (is_input) return api->SessionGetInputTypeInfo(s, idx, out);
    return api->SessionGetOutputTypeInfo(s, idx, out);
}

static OrtStatus* ort_get_allocator(const OrtApi* api, OrtAllocator** out) {
    return api->GetAllocatorWithDefaultOptions(out);
}

static const char* ort_error_message(const OrtApi* api, OrtStatus* status) {
    return api->GetErrorMessage(status);
}
static void ort_release_status(const OrtApi* api, OrtStatus* status) { api->ReleaseStatus(status); }
static void ort_release_env(const OrtApi* api, OrtEnv* env) { api->ReleaseEnv(env); }
static void ort_release_session(const OrtApi* api, OrtSession* s) { api->ReleaseSession(s); }
static void ort_release_session_options(const OrtApi* api, OrtSessionOptions* o) { api->ReleaseSessionOptions(o); }
static void ort_release_memory_info(const OrtApi* api, OrtMemoryInfo* i) { api->ReleaseMemoryInfo(i); }
static void ort_release_value(const OrtApi* api, OrtValue* v) { api->ReleaseValue(v); }
static void ort_release_type_info(const OrtApi* api, OrtTypeInfo* t) { api->ReleaseTypeInfo(t); }
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

func api() *C.OrtApi { return C.ort_api() }

func checkStatus(status *C.OrtStatus) error {
	if status == nil {
		return nil
	}
	msg := C.GoString(C.ort_error_message(api(), status))
	C.ort_release_status(api(), status)
	return fmt.Errorf("onnxrt: %s", msg)
}

// ORTEnv is the CGo-backed [Env] implementation.
type ORTEnv struct {
	env *C.OrtEnv
}

// NewORTEnv creates a new ONNX Runtime environment. One per process is
// the conventional usage; Env is safe for concurrent use.
func NewORTEnv(name string) (*ORTEnv, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var env *C.OrtEnv
	if err := checkStatus(C.ort_create_env(api(), cName, &env)); err != nil {
		return nil, err
	}
	e := &ORTEnv{env: env}
	runtime.SetFinalizer(e, (*ORTEnv).Close)
	return e, nil
}

func (e *ORTEnv) NewSession(modelData []byte, numThreads int) (Session, error) {
	if len(modelData) == 0 {
		return nil, fmt.Errorf("onnxrt: empty model data")
	}

	var opts *C.OrtSessionOptions
	if err := checkStatus(C.ort_create_session_options(api(), C.int(numThreads), &opts)); err != nil {
		return nil, err
	}
	defer C.ort_release_session_options(api(), opts)

	var session *C.OrtSession
	if err := checkStatus(C.ort_create_session_from_memory(
		api(), e.env, unsafe.Pointer(&modelData[0]), C.size_t(len(modelData)), opts, &session,
	)); err != nil {
		return nil, err
	}

	s := &ortSession{session: session, pinned: modelData}
	runtime.SetFinalizer(s, (*ortSession).Close)

	inputs, err := probeIO(s.session, true)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("onnxrt: probe inputs: %w", err)
	}
	outputs, err := probeIO(s.session, false)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("onnxrt: probe outputs: %w", err)
	}
	s.inputs, s.outputs = inputs, outputs
	return s, nil
}

func (e *ORTEnv) Close() error {
	if e.env != nil {
		C.ort_release_env(api(), e.env)
		e.env = nil
		runtime.SetFinalizer(e, nil)
	}
	return nil
}

// ortSession wraps OrtSession and caches the IO descriptors probed at
// construction. Only each IOInfo's Name is filled; DType and Shape stay
// at their zero values (see probeIO), so shape-driven mode selection in
// pkg/stt sees no shapes from this session.
type ortSession struct {
	session *C.OrtSession
	pinned  any
	inputs  []IOInfo
	outputs []IOInfo
}

func (s *ortSession) InputInfo() []IOInfo  { return s.inputs }
func (s *ortSession) OutputInfo() []IOInfo { return s.outputs }

func (s *ortSession) Run(inputs map[string]Tensor) (map[string]Tensor, error) {
	inputNames := make([]string, 0, len(inputs))
	for name := range inputs {
		inputNames = append(inputNames, name)
	}
	outputNames := make([]string, len(s.outputs))
	for i, o := range s.outputs {
		outputNames[i] = o.Name
	}

	cInputNames := make([]*C.char, len(inputNames))
	for i, name := range inputNames {
		cInputNames[i] = C.CString(name)
		defer C.free(unsafe.Pointer(cInputNames[i]))
	}
	cOutputNames := make([]*C.char, len(outputNames))
	for i, name := range outputNames {
		cOutputNames[i] = C.CString(name)
		defer C.free(unsafe.Pointer(cOutputNames[i]))
	}

	var memInfo *C.OrtMemoryInfo
	if err := checkStatus(C.ort_create_cpu_memory_info(api(), &memInfo)); err != nil {
		return nil, err
	}
	defer C.ort_release_memory_info(api(), memInfo)

	cInputs := make([]*C.OrtValue, len(inputNames))
	for i, name := range inputNames {
		t := inputs[name]
		value, err := newOrtValue(memInfo, t)
		if err != nil {
			return nil, err
		}
		defer C.ort_release_value(api(), value)
		cInputs[i] = value
	}

	cOutputs := make([]*C.OrtValue, len(outputNames))

	var inNamesPtr **C.char
	var inValsPtr *unsafe.Pointer
	if len(cInputNames) > 0 {
		inNamesPtr = &cInputNames[0]
		inValsPtr = (*unsafe.Pointer)(unsafe.Pointer(&cInputs[0]))
	}
	var outNamesPtr **C.char
	var outValsPtr *unsafe.Pointer
	if len(cOutputNames) > 0 {
		outNamesPtr = &cOutputNames[0]
		outValsPtr = (*unsafe.Pointer)(unsafe.Pointer(&cOutputs[0]))
	}

	status := C.ort_run(api(), s.session,
		inNamesPtr, (**C.OrtValue)(unsafe.Pointer(inValsPtr)), C.size_t(len(cInputs)),
		outNamesPtr, C.size_t(len(cOutputNames)), (*C.OrtValue)(unsafe.Pointer(outValsPtr)),
	)
	if err := checkStatus(status); err != nil {
		return nil, err
	}

	result := make(map[string]Tensor, len(outputNames))
	for i, name := range outputNames {
		t, err := readOrtValue(cOutputs[i])
		C.ort_release_value(api(), cOutputs[i])
		if err != nil {
			return nil, fmt.Errorf("onnxrt: read output %q: %w", name, err)
		}
		result[name] = t
	}
	return result, nil
}

func (s *ortSession) Close() error {
	if s.session != nil {
		C.ort_release_session(api(), s.session)
		s.session = nil
		runtime.SetFinalizer(s, nil)
	}
	return nil
}

func newOrtValue(memInfo *C.OrtMemoryInfo, t Tensor) (*C.OrtValue, error) {
	var dtype C.ONNXTensorElementDataType
	switch t.DType {
	case Float32:
		dtype = C.ONNX_TENSOR_ELEMENT_DATA_TYPE_FLOAT
	case Int64:
		dtype = C.ONNX_TENSOR_ELEMENT_DATA_TYPE_INT64
	default:
		return nil, fmt.Errorf("onnxrt: unsupported dtype %s", t.DType)
	}
	if len(t.Data) == 0 {
		return nil, fmt.Errorf("onnxrt: empty tensor data")
	}

	var value *C.OrtValue
	shape := t.Shape
	var shapePtr *C.int64_t
	if len(shape) > 0 {
		shapePtr = (*C.int64_t)(unsafe.Pointer(&shape[0]))
	}
	if err := checkStatus(C.ort_create_tensor(
		api(), memInfo, unsafe.Pointer(&t.Data[0]), C.size_t(len(t.Data)),
		shapePtr, C.size_t(len(shape)), dtype, &value,
	)); err != nil {
		return nil, err
	}
	return value, nil
}

func readOrtValue(value *C.OrtValue) (Tensor, error) {
	var elemType C.ONNXTensorElementDataType
	if err := checkStatus(C.ort_get_tensor_elem_type(api(), value, &elemType)); err != nil {
		return Tensor{}, err
	}

	var cShape *C.int64_t
	var ndim C.size_t
	if err := checkStatus(C.ort_get_tensor_shape(api(), value, &cShape, &ndim)); err != nil {
		return Tensor{}, err
	}
	defer C.free(unsafe.Pointer(cShape))

	shape := make([]int64, int(ndim))
	total := int64(1)
	for i := range shape {
		shape[i] = int64(*(*C.int64_t)(unsafe.Pointer(uintptr(unsafe.Pointer(cShape)) + uintptr(i)*8)))
		total *= shape[i]
	}

	var ptr unsafe.Pointer
	if err := checkStatus(C.ort_get_tensor_data(api(), value, &ptr)); err != nil {
		return Tensor{}, err
	}

	switch elemType {
	case C.ONNX_TENSOR_ELEMENT_DATA_TYPE_FLOAT:
		data := make([]byte, total*4)
		C.memcpy(unsafe.Pointer(&data[0]), ptr, C.size_t(total*4))
		return Tensor{DType: Float32, Shape: shape, Data: data}, nil
	case C.ONNX_TENSOR_ELEMENT_DATA_TYPE_INT64:
		data := make([]byte, total*8)
		C.memcpy(unsafe.Pointer(&data[0]), ptr, C.size_t(total*8))
		return Tensor{DType: Int64, Shape: shape, Data: data}, nil
	default:
		return Tensor{}, fmt.Errorf("onnxrt: unsupported output element type %d", int(elemType))
	}
}

func probeIO(session *C.OrtSession, isInput bool) ([]IOInfo, error) {
	var alloc *C.OrtAllocator
	if err := checkStatus(C.ort_get_allocator(api(), &alloc)); err != nil {
		return nil, err
	}

	var count C.size_t
	var cIsInput C.int
	if isInput {
		cIsInput = 1
	}
	if err := checkStatus(C.ort_session_io_count(api(), session, cIsInput, &count)); err != nil {
		return nil, err
	}

	infos := make([]IOInfo, int(count))
	for i := 0; i < int(count); i++ {
		var cName *C.char
		if err := checkStatus(C.ort_session_io_name(api(), session, C.size_t(i), cIsInput, alloc, &cName)); err != nil {
			return nil, err
		}
		infos[i].Name = C.GoString(cName)
		C.free(unsafe.Pointer(cName))

		var typeInfo *C.OrtTypeInfo
		if err := checkStatus(C.ort_session_io_type_info(api(), session, C.size_t(i), cIsInput, &typeInfo)); err != nil {
			return nil, err
		}
		C.ort_release_type_info(api(), typeInfo)
		// Dtype/shape are probed per-tensor at Run time from actual
		// OrtValues; the static graph declaration may list dynamic
		// dimensions as -1, which isn't useful to cache here.
	}
	return infos, nil
}
