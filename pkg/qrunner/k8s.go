package qrunner

import (
	"fmt"
	"sort"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
)

const (
	DeploymentLabel = "photon.dev/deployment"
	PhotonIDLabel   = "photon.dev/id"
	PhotonNameLabel = "photon.dev/name"

	// SecretName holds every workspace secret, one key per secret.
	SecretName = "photon-secrets"

	// StorageClaimName backs user mounts; Mount.Source is a sub path of it.
	StorageClaimName = "photon-storage"

	ArtifactVolumeName = "artifact"
	StorageVolumeName  = "storage"

	FetchContainerName = "fetch-artifact"
	FetchImage         = "curlimages/curl:8.10.1"
	MainContainerName  = "photon"
)

// ClusterDeployment is a photon deployment on a Kubernetes workspace.
type ClusterDeployment struct {
	Name        string
	PhotonID    string
	PhotonName  string
	ArtifactURL string
	Port        int
	Env         map[string]string
	// Secrets maps env var names to keys of SecretName.
	Secrets     map[string]string
	Mounts      []Mount
	MinReplicas int32
	Config      ContainerConfig
}

// BuildDeployment builds the apps/v1 Deployment for d. An init container
// downloads the archive into a shared volume; the main container prepares
// and serves it.
func BuildDeployment(d ClusterDeployment) (*appsv1.Deployment, error) {
	if d.Config.Image == "" {
		return nil, fmt.Errorf("no runtime image for %s", d.Name)
	}
	replicas := d.MinReplicas
	if replicas < 1 {
		replicas = 1
	}
	resources, err := resourceRequirements(d.Config.Resources)
	if err != nil {
		return nil, err
	}

	artifactPath := ArtifactMountDir + "/" + d.PhotonID + ".photon"
	labels := map[string]string{
		DeploymentLabel: d.Name,
		PhotonIDLabel:   d.PhotonID,
		PhotonNameLabel: d.PhotonName,
	}
	selector := map[string]string{DeploymentLabel: d.Name}

	volumes := []corev1.Volume{{
		Name:         ArtifactVolumeName,
		VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
	}}
	mounts := []corev1.VolumeMount{{Name: ArtifactVolumeName, MountPath: ArtifactMountDir}}
	if len(d.Mounts) > 0 {
		volumes = append(volumes, corev1.Volume{
			Name: StorageVolumeName,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: StorageClaimName},
			},
		})
		for _, m := range d.Mounts {
			mounts = append(mounts, corev1.VolumeMount{
				Name:      StorageVolumeName,
				MountPath: m.Destination,
				SubPath:   strings.TrimPrefix(m.Source, "/"),
				ReadOnly:  m.ReadOnly,
			})
		}
	}

	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:   d.Name,
			Labels: labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Volumes: volumes,
					InitContainers: []corev1.Container{{
						Name:            FetchContainerName,
						Image:           FetchImage,
						ImagePullPolicy: corev1.PullIfNotPresent,
						Command:         []string{"sh", "-c", `curl -fsSL "$PHOTON_ARTIFACT_URL" -o "$PHOTON_ARTIFACT_PATH"`},
						Env: []corev1.EnvVar{
							{Name: "PHOTON_ARTIFACT_URL", Value: d.ArtifactURL},
							{Name: "PHOTON_ARTIFACT_PATH", Value: artifactPath},
						},
						VolumeMounts: []corev1.VolumeMount{{Name: ArtifactVolumeName, MountPath: ArtifactMountDir}},
					}},
					RestartPolicy: corev1.RestartPolicyAlways,
					Containers: []corev1.Container{{
						Name:            MainContainerName,
						Image:           d.Config.Image,
						ImagePullPolicy: corev1.PullIfNotPresent,
						Command:         WrapCommandForLocal(artifactPath, d.Port, envNames(d.Env, d.Secrets)...),
						Env:             append(envMapToEnvVars(d.Env), secretEnvVars(d.Secrets)...),
						Ports: []corev1.ContainerPort{{
							Name:          "http",
							ContainerPort: int32(d.Port),
							Protocol:      corev1.ProtocolTCP,
						}},
						ReadinessProbe: &corev1.Probe{
							ProbeHandler: corev1.ProbeHandler{
								HTTPGet: &corev1.HTTPGetAction{Path: "/healthz", Port: intstr.FromString("http")},
							},
							PeriodSeconds: 5,
						},
						VolumeMounts: mounts,
						Resources:    resources,
					}},
				},
			},
		},
	}
	return dep, nil
}

// DeploymentStatus summarizes a Deployment for listing.
func DeploymentStatus(dep *appsv1.Deployment) LaunchStatus {
	for _, c := range dep.Status.Conditions {
		if c.Type == appsv1.DeploymentReplicaFailure && c.Status == corev1.ConditionTrue {
			return LaunchStatusFailed
		}
		if c.Type == appsv1.DeploymentProgressing && c.Status == corev1.ConditionFalse {
			return LaunchStatusFailed
		}
	}
	if dep.Spec.Replicas != nil && *dep.Spec.Replicas == 0 {
		return LaunchStatusStopped
	}
	if dep.Status.ReadyReplicas > 0 {
		return LaunchStatusRunning
	}
	return LaunchStatusPending
}

func resourceRequirements(r ResourceRequirements) (corev1.ResourceRequirements, error) {
	out := corev1.ResourceRequirements{Requests: corev1.ResourceList{}, Limits: corev1.ResourceList{}}
	set := func(list corev1.ResourceList, name corev1.ResourceName, s string) error {
		q, ok, err := parseQuantity(s)
		if err != nil {
			return err
		}
		if ok {
			list[name] = q
		}
		return nil
	}
	for _, f := range []struct {
		list corev1.ResourceList
		name corev1.ResourceName
		val  string
	}{
		{out.Requests, corev1.ResourceCPU, r.CPURequest},
		{out.Requests, corev1.ResourceMemory, r.MemoryRequest},
		{out.Limits, corev1.ResourceCPU, r.CPULimit},
		{out.Limits, corev1.ResourceMemory, r.MemoryLimit},
	} {
		if err := set(f.list, f.name, f.val); err != nil {
			return corev1.ResourceRequirements{}, err
		}
	}
	return out, nil
}

// envNames lists the variable names set on the main container.
func envNames(maps ...map[string]string) []string {
	var out []string
	for _, m := range maps {
		for k := range m {
			out = append(out, k)
		}
	}
	return out
}

func envMapToEnvVars(envMap map[string]string) []corev1.EnvVar {
	if envMap == nil {
		return nil
	}

	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	envVars := make([]corev1.EnvVar, 0, len(envMap))
	for _, k := range keys {
		envVars = append(envVars, corev1.EnvVar{
			Name:  k,
			Value: envMap[k],
		})
	}
	return envVars
}

func secretEnvVars(secrets map[string]string) []corev1.EnvVar {
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, corev1.EnvVar{
			Name: k,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: SecretName},
					Key:                  secrets[k],
				},
			},
		})
	}
	return out
}
